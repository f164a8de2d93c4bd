package model

// HubStats is a point-in-time view of realtime fan-out state.
type HubStats struct {
	TotalConnections int                `json:"total_connections"`
	Roles            map[ClientRole]int `json:"roles"`
	DroppedEvents    uint64             `json:"dropped_events"`
}
