package bus

import (
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/message-wall/internal/adapter/pubsub"
	"github.com/webitel/message-wall/internal/domain/registry"
	"github.com/webitel/message-wall/internal/metrics"
)

// EventHandler moves committed wall events from the bus to live sessions and the broker.
type EventHandler struct {
	hub      registry.Hubber
	exporter pubsub.Exporter
	logger   *slog.Logger
}

func NewEventHandler(hub registry.Hubber, exporter pubsub.Exporter, logger *slog.Logger) *EventHandler {
	return &EventHandler{hub: hub, exporter: exporter, logger: logger}
}

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to the hub, handling Panic Recovery and Fan-out.
// Every message is acked: the bus is in-process and a retry would reorder events.
func Bind(h *EventHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		// [PANIC_RECOVERY]
		defer func() {
			if r := recover(); r != nil {
				metrics.BusPanicsTotal.Inc()
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		// [DECODING]
		ev, err := pubsub.DecodeEvent(msg)
		if err != nil {
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return nil // ACK: Poison Pill protection.
		}

		// [FAN_OUT_DISPATCH]
		// 1. Local delivery (WebSockets).
		if !h.hub.Broadcast(ev) {
			metrics.HubMailboxOverflowTotal.Inc()
			h.logger.Warn("HUB_MAILBOX_OVERFLOW", "event", ev.GetKind().String(), "msg_id", msg.UUID, "action", "sessions_resync")
		}

		// 2. External delivery (RabbitMQ).
		if rk := msg.Metadata.Get(pubsub.MetaRoutingKey); rk != "" {
			h.exporter.Export(rk, msg.Payload)
		}

		return nil
	}
}
