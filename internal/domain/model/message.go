package model

import "time"

// Status is the stored lifecycle state of a message.
// Removal (reject/delete/eviction) is represented by absence from the store.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Message is a single wall submission.
type Message struct {
	ID        int64      `json:"id"`
	Section   SectionKey `json:"section"`
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Status    Status     `json:"status"`
}

func (m Message) IsPending() bool  { return m.Status == StatusPending }
func (m Message) IsApproved() bool { return m.Status == StatusApproved }

// Ref addresses a message inside the store.
type Ref struct {
	Section SectionKey `json:"section" validate:"required"`
	ID      int64      `json:"id" validate:"required"`
}

// Draft is the raw, unsanitised input of a submission.
type Draft struct {
	Author string
	Text   string
}

// Snapshot is the full per-section view pushed to a newly connected client.
type Snapshot map[SectionKey][]Message
