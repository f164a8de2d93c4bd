package model

import "time"

// LogKind enumerates operational journal entries.
type LogKind string

const (
	LogNewMessage    LogKind = "new-message"
	LogApprove       LogKind = "approve"
	LogApproveBulk   LogKind = "approve-bulk"
	LogReject        LogKind = "reject"
	LogRejectBulk    LogKind = "reject-bulk"
	LogDelete        LogKind = "delete"
	LogDeleteSection LogKind = "delete-section"
	LogClearAll      LogKind = "clear-all"
	LogConnection    LogKind = "connection"
	LogDisconnect    LogKind = "disconnect"
	LogCensored      LogKind = "censored"
)

// LogEntry is one record of the bounded operational journal.
type LogEntry struct {
	Type      LogKind        `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
