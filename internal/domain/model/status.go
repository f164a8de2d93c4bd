package model

import "time"

// WallStatus is the administrative summary served to polling dashboards.
type WallStatus struct {
	ActiveConnections int                `json:"activeConnections"`
	TotalMessages     int                `json:"totalMessages"`
	MessagesBySection map[SectionKey]int `json:"messagesBySection"`
	LastActivity      *time.Time         `json:"lastActivity"`
	ConnectionsByRole map[ClientRole]int `json:"connectionsByRole"`
}

// PendingList is the moderation queue view.
type PendingList struct {
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}
