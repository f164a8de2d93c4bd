package event

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/message-wall/internal/domain/model"
)

var (
	_ Eventer    = (*WallEvent)(nil)
	_ Exportable = (*WallEvent)(nil)
)

// WallEvent is the envelope for every state change fanned out to realtime clients.
type WallEvent struct {
	id         string
	kind       EventKind
	priority   EventPriority
	occurredAt int64
	section    model.SectionKey
	payload    any

	// [ENCODE_ONCE]
	// Wire encoding shared by every session that receives this instance.
	cached atomic.Value
}

func newWallEvent(kind EventKind, priority EventPriority, section model.SectionKey, payload any) *WallEvent {
	return &WallEvent{
		id:         uuid.NewString(),
		kind:       kind,
		priority:   priority,
		occurredAt: time.Now().UnixMilli(),
		section:    section,
		payload:    payload,
	}
}

func (e *WallEvent) GetID() string              { return e.id }
func (e *WallEvent) GetKind() EventKind         { return e.kind }
func (e *WallEvent) GetPriority() EventPriority { return e.priority }
func (e *WallEvent) GetOccurredAt() int64       { return e.occurredAt }
func (e *WallEvent) GetPayload() any            { return e.payload }
func (e *WallEvent) GetCached() any             { return e.cached.Load() }
func (e *WallEvent) SetCached(v any)            { e.cached.Store(v) }

// GetRoutingKey builds the export topic.
// [PATTERN] message_wall.v1.{section|all}.{event}
func (e *WallEvent) GetRoutingKey() string {
	if e.kind == InitialMessages {
		return ""
	}
	scope := string(e.section)
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("message_wall.v1.%s.%s", scope, e.kind)
}

// NewInitialMessagesEvent wraps the connect-time snapshot. It is never exported.
func NewInitialMessagesEvent(snapshot model.Snapshot) *WallEvent {
	return newWallEvent(InitialMessages, PriorityHigh, "", snapshot)
}

func NewPendingMessageAddedEvent(msg model.Message) *WallEvent {
	return newWallEvent(PendingMessageAdded, PriorityNormal, msg.Section, &MessagePayload{Section: msg.Section, Message: msg})
}

func NewMessageApprovedEvent(msg model.Message) *WallEvent {
	return newWallEvent(MessageApproved, PriorityHigh, msg.Section, &MessagePayload{Section: msg.Section, Message: msg})
}

func NewMessageRejectedEvent(section model.SectionKey, id int64) *WallEvent {
	return newWallEvent(MessageRejected, PriorityHigh, section, &RefPayload{Section: section, ID: id})
}

func NewMessageDeletedEvent(section model.SectionKey, id int64) *WallEvent {
	return newWallEvent(MessageDeleted, PriorityHigh, section, &RefPayload{Section: section, ID: id})
}

func NewSectionClearedEvent(section model.SectionKey) *WallEvent {
	return newWallEvent(SectionCleared, PriorityHigh, section, &SectionPayload{Section: section})
}

func NewAllMessagesClearedEvent() *WallEvent {
	return newWallEvent(AllMessagesCleared, PriorityHigh, "", nil)
}
