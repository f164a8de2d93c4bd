package event

import "fmt"

type EventKind int16

const (
	InitialMessages     EventKind = iota + 1 // [SNAPSHOT]
	PendingMessageAdded                      // [MODERATION]
	MessageApproved
	MessageRejected
	MessageDeleted
	SectionCleared // [AGGREGATE]
	AllMessagesCleared
)

var kindNames = map[EventKind]string{
	InitialMessages:     "initial-messages",
	PendingMessageAdded: "pending-message-added",
	MessageApproved:     "message-approved",
	MessageRejected:     "message-rejected",
	MessageDeleted:      "message-deleted",
	SectionCleared:      "section-cleared",
	AllMessagesCleared:  "all-messages-cleared",
}

// String returns the wire name of the event.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int16(k))
}

// ParseEventKind resolves a wire name back to its kind.
func ParseEventKind(name string) (EventKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all data packets flowing through the Hub.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	GetCached() any
	SetCached(any)
}

// Exportable defines an event that should be re-published to the message bus.
type Exportable interface {
	// We return the key only if the event is ready to be exported.
	// If it returns an empty string, the binder will skip publishing.
	GetRoutingKey() string
}
