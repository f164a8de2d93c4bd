package wsmarshaller

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/model"
)

func TestMarshallDeliveryEvent_Frame(t *testing.T) {
	req := require.New(t)
	msg := model.Message{
		ID:        42,
		Section:   "section3",
		Author:    "Ada",
		Text:      "hello",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:    model.StatusApproved,
	}
	ev := event.NewMessageApprovedEvent(msg)

	data, err := MarshallDeliveryEvent(ev)
	req.NoError(err)

	frame, payload, err := UnmarshallFrame(data)
	req.NoError(err)
	req.Equal("message-approved", frame.Event)
	req.Equal(ev.GetID(), frame.ID)
	req.Equal(ev.GetOccurredAt(), frame.SentAt)

	var got event.MessagePayload
	req.NoError(json.Unmarshal(payload, &got))
	req.Equal(model.SectionKey("section3"), got.Section)
	req.Equal(msg, got.Message)
}

func TestMarshallDeliveryEvent_EncodesOnce(t *testing.T) {
	req := require.New(t)
	ev := event.NewMessageDeletedEvent("section1", 7)

	first, err := MarshallDeliveryEvent(ev)
	req.NoError(err)
	second, err := MarshallDeliveryEvent(ev)
	req.NoError(err)
	req.Same(&first[0], &second[0])
}

func TestMarshallDeliveryEvent_RawEventUsesFrame(t *testing.T) {
	frame := []byte(`{"event":"section-cleared","id":"x","sent_at":1,"payload":{"section":"section2"}}`)
	ev := event.NewRawEvent("x", event.SectionCleared, event.PriorityHigh, 1, frame)

	data, err := MarshallDeliveryEvent(ev)
	require.NoError(t, err)
	require.Equal(t, frame, data)
}

func TestMarshallDeliveryEvent_Snapshot(t *testing.T) {
	req := require.New(t)
	ev := event.NewInitialMessagesEvent(model.Snapshot{
		"section1": {{ID: 1, Section: "section1", Text: "a", Status: model.StatusPending}},
		"section2": {},
	})

	data, err := MarshallDeliveryEvent(ev)
	req.NoError(err)

	_, payload, err := UnmarshallFrame(data)
	req.NoError(err)
	var snap model.Snapshot
	req.NoError(json.Unmarshal(payload, &snap))
	req.Len(snap["section1"], 1)
	req.Empty(snap["section2"])
}

func TestUnmarshallNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    *NewMessagePayload
		wantErr bool
	}{
		{
			name: "valid",
			in:   `{"event":"new-message","payload":{"section":"section1","text":"hi","author":"Bo"}}`,
			want: &NewMessagePayload{Section: "section1", Text: "hi", Author: "Bo"},
		},
		{name: "other event", in: `{"event":"approve","payload":{}}`, wantErr: true},
		{name: "garbage", in: `not json`, wantErr: true},
		{name: "bad payload", in: `{"event":"new-message","payload":"x"}`, wantErr: true},
		{name: "missing text", in: `{"event":"new-message","payload":{"section":"section1"}}`, wantErr: true},
		{name: "missing section", in: `{"event":"new-message","payload":{"text":"hi"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshallNewMessage([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
