package wsmarshaller

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// EventNewMessage is the only frame clients may send.
const EventNewMessage = "new-message"

var ErrUnsupportedFrame = errors.New("unsupported frame")

var validate = validator.New(validator.WithRequiredStructEnabled())

// InboundFrame is a client-to-server frame.
type InboundFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessagePayload is the submission form of the kiosk and mobile clients.
type NewMessagePayload struct {
	Section string `json:"section" validate:"required"`
	Text    string `json:"text" validate:"required"`
	Author  string `json:"author"`
}

// UnmarshallNewMessage decodes a new-message frame.
func UnmarshallNewMessage(data []byte) (*NewMessagePayload, error) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if frame.Event != EventNewMessage {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFrame, frame.Event)
	}

	var p NewMessagePayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", frame.Event, err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", frame.Event, err)
	}
	return &p, nil
}
