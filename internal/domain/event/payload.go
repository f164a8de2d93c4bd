package event

import "github.com/webitel/message-wall/internal/domain/model"

// MessagePayload carries a full message (pending-message-added, message-approved).
type MessagePayload struct {
	Section model.SectionKey `json:"section"`
	Message model.Message    `json:"message"`
}

// RefPayload carries only the identity of a removed message.
type RefPayload struct {
	Section model.SectionKey `json:"section"`
	ID      int64            `json:"id"`
}

// SectionPayload names the section that was cleared.
type SectionPayload struct {
	Section model.SectionKey `json:"section"`
}
