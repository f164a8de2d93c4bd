package event

import "sync/atomic"

var _ Eventer = (*RawEvent)(nil)

// RawEvent is an event that arrived already encoded, e.g. from the in-process bus.
// Its cache is pre-populated with the frame so transports never re-encode it.
type RawEvent struct {
	ID         string
	Kind       EventKind
	Priority   EventPriority
	OccurredAt int64
	Frame      []byte

	cached atomic.Value
}

func NewRawEvent(id string, kind EventKind, priority EventPriority, occurredAt int64, frame []byte) *RawEvent {
	ev := &RawEvent{ID: id, Kind: kind, Priority: priority, OccurredAt: occurredAt, Frame: frame}
	ev.cached.Store(frame)
	return ev
}

func (e *RawEvent) GetID() string              { return e.ID }
func (e *RawEvent) GetKind() EventKind         { return e.Kind }
func (e *RawEvent) GetPriority() EventPriority { return e.Priority }
func (e *RawEvent) GetOccurredAt() int64       { return e.OccurredAt }
func (e *RawEvent) GetPayload() any            { return e.Frame }
func (e *RawEvent) GetCached() any             { return e.cached.Load() }
func (e *RawEvent) SetCached(v any)            { e.cached.Store(v) }
