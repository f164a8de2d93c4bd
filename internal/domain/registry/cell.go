/*
Package registry provides the realtime event distribution system based on the Actor Model.

Key Architectural Concepts:
  - Virtual Cells: every client role (admin, display, kiosk, mobile) is represented by an
    isolated 'Cell' (Actor) that encapsulates all websocket sessions of that role.
  - Decoupling & Backpressure: through per-role mailboxes and per-session buffers, a slow
    display screen can never stall moderation or the other screens.
  - Ordered Attachment: sessions join a cell through the same mailbox that carries events,
    so a session sees exactly the events published after its snapshot was taken.
  - Encode Once: events are marshaled into the wire format once and shared by every session.
*/
package registry

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/model"
)

// Celler defines the internal API for role-specific delivery units.
type Celler interface {
	Push(ev event.Eventer) bool
	Attach(conn Connector) bool
	Detach(connID uuid.UUID) int
	Len() int
	IsIdle(timeout time.Duration) bool
	Stop()
}

// envelope is a mailbox item: either an event to deliver or a session to attach.
type envelope struct {
	ev     event.Eventer
	attach Connector
	epoch  uint64
}

// Cell implements [ISOLATED_DELIVERY] logic for a single client role.
type Cell struct {
	// [IDENTITY]
	role model.ClientRole

	// [MAILBOX]
	// Buffered channel that decouples the bus consumer from individual delivery.
	mailbox chan envelope

	// [SESSIONS]
	// Registry of all active websocket sessions of this role.
	sessions map[uuid.UUID]Connector

	// [CONCURRENCY_CONTROL]
	mu sync.RWMutex

	// [RESYNC_EPOCH]
	// Bumped on every lost event; attachments queued under an older epoch are stale.
	epoch atomic.Uint64

	// [LIFECYCLE_CONTROL]
	doneCh   chan struct{}
	stopOnce sync.Once

	// lastActivityAt records the last time a session joined or left, or an event was processed.
	lastActivityAt time.Time
}

func NewCell(role model.ClientRole, bufferSize int) *Cell {
	if bufferSize <= 0 {
		bufferSize = defaultMailboxSize
	}
	c := &Cell{
		role:           role,
		mailbox:        make(chan envelope, bufferSize), // [DYNAMIC_BUFFER]
		sessions:       make(map[uuid.UUID]Connector),
		doneCh:         make(chan struct{}),
		lastActivityAt: time.Now(),
	}
	go c.loop()
	return c
}

// IsIdle returns true if the role has no active sessions and nothing happened lately.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) == 0 && time.Since(c.lastActivityAt) > timeout
}

func (c *Cell) touch() {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	c.mu.Unlock()
}

// Push enqueues an event without blocking; false means the mailbox overflowed.
func (c *Cell) Push(ev event.Eventer) bool {
	select {
	case <-c.doneCh:
		return false
	case c.mailbox <- envelope{ev: ev}:
		return true
	default:
		return c.overflow(ev)
	}
}

// overflow drops the event. Low-priority events are simply shed; any other
// loss closes every session of the role, including those still waiting in
// the mailbox, so their clients reconnect from a fresh snapshot.
func (c *Cell) overflow(ev event.Eventer) bool {
	if ev.GetPriority() <= event.PriorityLow {
		return false
	}
	c.epoch.Add(1)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, conn := range c.sessions {
		conn.Close()
	}
	return false
}

// Attach queues the session behind every event already in the mailbox.
// Unlike Push it waits for room, as a lost attachment would orphan the session.
func (c *Cell) Attach(conn Connector) bool {
	c.touch()
	select {
	case <-c.doneCh:
		return false
	case c.mailbox <- envelope{attach: conn, epoch: c.epoch.Load()}:
		return true
	}
}

// Detach removes a session and returns the number still attached.
func (c *Cell) Detach(connID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, connID)
	c.lastActivityAt = time.Now()
	return len(c.sessions)
}

func (c *Cell) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case env := <-c.mailbox:
			if env.attach != nil {
				c.attach(env.attach, env.epoch)
				continue
			}
			c.deliver(env.ev)
		}
	}
}

func (c *Cell) attach(conn Connector, epoch uint64) {
	select {
	case <-conn.Done():
		// Session ended before its turn came.
		return
	default:
	}
	if epoch != c.epoch.Load() {
		// [RESYNC] its snapshot predates an event this cell lost.
		conn.Close()
		return
	}
	c.mu.Lock()
	c.sessions[conn.GetID()] = conn
	c.lastActivityAt = time.Now()
	c.mu.Unlock()
}

func (c *Cell) deliver(ev event.Eventer) {
	c.touch()

	c.mu.RLock()
	sessions := slices.Collect(maps.Values(c.sessions))
	c.mu.RUnlock()

	for _, conn := range sessions {
		conn.Send(ev)
	}
}

func (c *Cell) Stop() {
	c.stopOnce.Do(func() { close(c.doneCh) })
}
