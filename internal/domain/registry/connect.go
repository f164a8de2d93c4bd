package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/model"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (REGISTRY/HUB)
// This allows mocking and decoupling from the concrete implementation
type Connector interface {
	GetID() uuid.UUID
	GetMetadata() model.ConnectMetadata
	GetCreatedAt() time.Time
	Send(ev event.Eventer) bool // Non-blocking send with backpressure handling
	Recv() <-chan event.Eventer
	Done() <-chan struct{}
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id        uuid.UUID
	metadata  model.ConnectMetadata
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc
	sendCh   chan event.Eventer

	closeOnce      sync.Once // [PROTECTION]
	lastActivityAt atomic.Int64
	droppedCount   atomic.Uint64
}

// [NEW_CONNECTOR] one per realtime session; bufferSize bounds how far a client may lag.
func NewConnector(ctx context.Context, meta model.ConnectMetadata, bufferSize int) Connector {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	childCtx, cancel := context.WithCancel(ctx)

	c := &connect{
		id:        uuid.New(),
		metadata:  meta,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan event.Eventer, bufferSize),
	}
	c.lastActivityAt.Store(time.Now().UnixNano())
	return c
}

// --- IMPLEMENTATION OF CONNECTOR INTERFACE ---

func (c *connect) GetID() uuid.UUID                   { return c.id }
func (c *connect) GetMetadata() model.ConnectMetadata { return c.metadata }
func (c *connect) GetCreatedAt() time.Time            { return c.createdAt }
func (c *connect) Recv() <-chan event.Eventer         { return c.sendCh }
func (c *connect) Done() <-chan struct{}              { return c.ctx.Done() }
func (c *connect) Dropped() uint64                    { return c.droppedCount.Load() }

// Send enqueues the event without ever waiting on the consumer.
// When the buffer is full it sheds load by priority instead.
func (c *connect) Send(ev event.Eventer) bool {
	select {
	// 1. [LIFECYCLE_GATE] Immediately abort if the underlying transport is already dead.
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	// 2. [PRIMARY_DELIVERY]
	case c.sendCh <- ev:
		c.lastActivityAt.Store(time.Now().UnixNano())
		return true
	// 3. [BACKPRESSURE_THRESHOLD] buffer saturated: slow consumer or network congestion.
	default:
		return c.handleBackpressure(ev)
	}
}

// handleBackpressure manages full buffers by dropping low-priority events.
func (c *connect) handleBackpressure(ev event.Eventer) bool {
	// If the incoming event is low priority, drop it immediately to save buffer for high priority
	if ev.GetPriority() <= event.PriorityLow {
		c.droppedCount.Add(1)
		return false
	}

	select {
	case oldEv := <-c.sendCh:
		c.droppedCount.Add(1)
		if oldEv.GetPriority() < ev.GetPriority() {
			// Head of the queue was less important: trade it for the incoming event
			select {
			case c.sendCh <- ev:
				return true
			default:
			}
		}
	default:
	}

	// [RESYNC] The session is hopelessly behind on events it cannot lose.
	// Closing it makes the client reconnect and start over from a fresh snapshot.
	c.droppedCount.Add(1)
	c.Close()
	return false
}

// Close terminates the session. Safe to call from the hub, the cell and the transport.
func (c *connect) Close() {
	// [IDEMPOTENCY_SHIELD]
	c.closeOnce.Do(func() {
		// [SIGNAL_ABORT] the send channel stays open; readers watch Done instead,
		// so a concurrent Send can never panic on a closed channel.
		c.cancelFn()
	})
}
