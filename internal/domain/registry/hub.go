package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/model"
)

// Hubber defines the gateway for session management and event fan-out.
type Hubber interface {
	Broadcast(ev event.Eventer) bool
	Register(conn Connector) int
	Unregister(conn Connector) int
	Count() int
	Stats() model.HubStats
	Shutdown()
}

var _ Hubber = (*Hub)(nil)

// Hub implements a [BROADCAST_REGISTRY] using the Virtual Cell pattern, one cell per role.
type Hub struct {
	config hubConfig

	mu    sync.RWMutex
	cells map[model.ClientRole]Celler
	conns map[Connector]struct{}

	count   atomic.Int64
	dropped atomic.Uint64

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			evictionInterval: defaultEvictionInterval,
			idleTimeout:      defaultIdleTimeout,
			mailboxSize:      defaultMailboxSize,
		},
		cells:       make(map[model.ClientRole]Celler),
		conns:       make(map[Connector]struct{}),
		stopJanitor: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.config.evictionInterval > 0 {
		go h.janitor()
	}
	return h
}

// Broadcast hands the event to every role cell. It never waits on a client;
// false means at least one mailbox overflowed and its sessions were closed to resync.
func (h *Hub) Broadcast(ev event.Eventer) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ok := true
	for _, cell := range h.cells {
		if !cell.Push(ev) {
			h.dropped.Add(1)
			ok = false
		}
	}
	return ok
}

// Register attaches the session to its role cell and returns the new connection count.
func (h *Hub) Register(conn Connector) int {
	role := conn.GetMetadata().Role
	if role == "" {
		role = model.RoleUnknown
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// [LAZY_INIT] Create cell only when the first session of a role arrives.
	cell, ok := h.cells[role]
	if !ok {
		cell = NewCell(role, h.config.mailboxSize)
		h.cells[role] = cell
	}
	if _, dup := h.conns[conn]; dup {
		return int(h.count.Load())
	}
	cell.Attach(conn)
	h.conns[conn] = struct{}{}
	return int(h.count.Add(1))
}

// Unregister performs [GRACEFUL_RECLAMATION] when a session ends and returns the new count.
// Unknown sessions are ignored so the count never goes negative.
func (h *Hub) Unregister(conn Connector) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return int(h.count.Load())
	}
	delete(h.conns, conn)

	role := conn.GetMetadata().Role
	if role == "" {
		role = model.RoleUnknown
	}
	if cell, ok := h.cells[role]; ok {
		cell.Detach(conn.GetID())
	}
	conn.Close()
	h.dropped.Add(conn.Dropped())
	return int(h.count.Add(-1))
}

func (h *Hub) Count() int { return int(h.count.Load()) }

func (h *Hub) Stats() model.HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roles := make(map[model.ClientRole]int, len(h.cells))
	dropped := h.dropped.Load()
	for conn := range h.conns {
		role := conn.GetMetadata().Role
		if role == "" {
			role = model.RoleUnknown
		}
		roles[role]++
		dropped += conn.Dropped()
	}
	return model.HubStats{
		TotalConnections: int(h.count.Load()),
		Roles:            roles,
		DroppedEvents:    dropped,
	}
}

// Shutdown closes every session and stops all cell goroutines.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.stopJanitor) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.Close()
	}
	clear(h.conns)
	for role, cell := range h.cells {
		cell.Stop()
		delete(h.cells, role)
	}
	h.count.Store(0)
}

// janitor reclaims role cells that have been empty for longer than the idle timeout.
func (h *Hub) janitor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopJanitor:
			return
		case <-ticker.C:
			h.evictIdle()
		}
	}
}

func (h *Hub) evictIdle() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for role, cell := range h.cells {
		if cell.IsIdle(h.config.idleTimeout) {
			cell.Stop()
			delete(h.cells, role)
		}
	}
}
