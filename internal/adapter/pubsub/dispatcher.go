package pubsub

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/message-wall/internal/domain/event"
	wsmarshaller "github.com/webitel/message-wall/internal/handler/marshaller/ws"
	"github.com/webitel/message-wall/internal/metrics"
	"github.com/webitel/message-wall/internal/service"
)

// Metadata keys carried by every bus message.
const (
	MetaKind       = "event_kind"
	MetaPriority   = "event_priority"
	MetaOccurredAt = "event_occurred_at"
	MetaRoutingKey = "routing_key"
)

var _ service.Publisher = (*EventDispatcher)(nil)

// EventDispatcher puts wall events on the in-process bus. The payload is the
// encoded realtime frame, so it is marshaled once for every session.
type EventDispatcher struct {
	publisher message.Publisher
	topic     string
}

func NewEventDispatcher(pub message.Publisher, topic string) *EventDispatcher {
	return &EventDispatcher{
		publisher: pub,
		topic:     topic,
	}
}

func (d *EventDispatcher) Publish(ctx context.Context, ev event.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	frame, err := wsmarshaller.MarshallDeliveryEvent(ev)
	if err != nil {
		return fmt.Errorf("event dispatcher: %w", err)
	}

	msg := message.NewMessage(ev.GetID(), frame)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetaKind, ev.GetKind().String())
	msg.Metadata.Set(MetaPriority, strconv.Itoa(int(ev.GetPriority())))
	msg.Metadata.Set(MetaOccurredAt, strconv.FormatInt(ev.GetOccurredAt(), 10))
	if exp, ok := ev.(event.Exportable); ok {
		msg.Metadata.Set(MetaRoutingKey, exp.GetRoutingKey())
	}

	start := time.Now()
	if err := d.publisher.Publish(d.topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", d.topic, err)
	}
	metrics.EventPublishDuration.Observe(time.Since(start).Seconds())
	return nil
}

// DecodeEvent rebuilds the event from a bus message without re-encoding the frame.
func DecodeEvent(msg *message.Message) (*event.RawEvent, error) {
	kind, ok := event.ParseEventKind(msg.Metadata.Get(MetaKind))
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", msg.Metadata.Get(MetaKind))
	}

	priority, err := strconv.Atoi(msg.Metadata.Get(MetaPriority))
	if err != nil {
		return nil, fmt.Errorf("event priority: %w", err)
	}

	occurredAt, err := strconv.ParseInt(msg.Metadata.Get(MetaOccurredAt), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("event occurred_at: %w", err)
	}

	return event.NewRawEvent(msg.UUID, kind, event.EventPriority(priority), occurredAt, msg.Payload), nil
}
