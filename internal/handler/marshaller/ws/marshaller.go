package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/webitel/message-wall/internal/domain/event"
)

// WSEvent is a generic wrapper for WebSocket messages to provide consistent structure
type WSEvent struct {
	Event   string `json:"event"` // e.g., "message-approved", "initial-messages"
	ID      string `json:"id"`    // event ID
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// MarshallDeliveryEvent prepares data for WebSocket transmission.
// The frame is encoded once per event and shared by every session.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	//  Return cached frame if already computed.
	if cached, ok := ev.GetCached().([]byte); ok && cached != nil {
		return cached, nil
	}

	res := &WSEvent{
		Event:   ev.GetKind().String(),
		ID:      ev.GetID(),
		SentAt:  ev.GetOccurredAt(),
		Payload: ev.GetPayload(),
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.GetKind(), err)
	}

	// STORE: Save for the other sessions of this fan-out.
	ev.SetCached(data)
	return data, nil
}

// UnmarshallFrame parses an encoded outbound frame back into its envelope.
// Used by consumers that only hold the bytes, such as the operator CLI.
func UnmarshallFrame(data []byte) (*WSEvent, json.RawMessage, error) {
	var raw struct {
		WSEvent
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return &raw.WSEvent, raw.Payload, nil
}
