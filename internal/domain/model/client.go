package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientRole is the self-declared purpose of a realtime client.
// Every role receives every event; filtering happens on the client.
type ClientRole string

const (
	RoleAdmin   ClientRole = "admin"
	RoleDisplay ClientRole = "display"
	RoleKiosk   ClientRole = "kiosk"
	RoleMobile  ClientRole = "mobile"
	RoleUnknown ClientRole = "unknown"
)

// ParseClientRole maps a query value onto a known role.
func ParseClientRole(s string) ClientRole {
	switch r := ClientRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleDisplay, RoleKiosk, RoleMobile:
		return r
	default:
		return RoleUnknown
	}
}

// [METADATA] EXPORTED FOR TRANSPORT AND ANALYTICS LAYERS
type ConnectMetadata struct {
	Role      ClientRole
	RemoteIP  string
	UserAgent string
}

// ClientInfo identifies a live realtime session for journaling.
type ClientInfo struct {
	ConnectionID uuid.UUID
	Role         ClientRole
	RemoteIP     string
	ConnectedAt  time.Time
}
