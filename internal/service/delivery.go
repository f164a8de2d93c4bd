package service

import (
	"context"
	"fmt"

	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/registry"
	"github.com/webitel/message-wall/internal/metrics"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR REALTIME TRANSPORT HANDLERS
type Deliverer interface {
	Subscribe(ctx context.Context, meta model.ConnectMetadata) (registry.Connector, error)
	Unsubscribe(conn registry.Connector)
	// Submit forwards a realtime submission. Throttled or invalid submissions
	// are reported as errors for logging only; the client is never told.
	Submit(ctx context.Context, meta model.ConnectMetadata, section model.SectionKey, author, text string) error
}

var _ Deliverer = (*DeliveryService)(nil)

var ErrThrottled = fmt.Errorf("%w: submission rate exceeded", model.ErrInvalidInput)

// [IMPLEMENTATION]
type DeliveryService struct {
	hub        registry.Hubber
	moderator  Moderator
	throttle   *Throttle
	bufferSize int
}

// NewDeliveryService returns a production-ready instance of the service.
func NewDeliveryService(hub registry.Hubber, moderator Moderator, throttle *Throttle, bufferSize int) *DeliveryService {
	return &DeliveryService{
		hub:        hub,
		moderator:  moderator,
		throttle:   throttle,
		bufferSize: bufferSize,
	}
}

// [SUBSCRIBE] HANDLES CONNECTION LIFECYCLE INITIATION
func (s *DeliveryService) Subscribe(ctx context.Context, meta model.ConnectMetadata) (registry.Connector, error) {
	// 1. Create a connector bound to the transport lifetime
	conn := registry.NewConnector(ctx, meta, s.bufferSize)

	// 2. Snapshot first, then attach, both under the engine lock
	err := s.moderator.Join(ctx, clientInfo(conn), func(snap model.Snapshot) (int, error) {
		if !conn.Send(event.NewInitialMessagesEvent(snap)) {
			return 0, fmt.Errorf("connection %s closed before snapshot", conn.GetID())
		}
		return s.hub.Register(conn), nil
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	metrics.WebSocketConnectionsCurrent.Inc()
	return conn, nil
}

// [UNSUBSCRIBE] TRIGGERS CLEANUP
func (s *DeliveryService) Unsubscribe(conn registry.Connector) {
	s.moderator.Leave(context.Background(), clientInfo(conn), func() int {
		// Hub.Unregister will call conn.Close()
		return s.hub.Unregister(conn)
	})
	metrics.WebSocketConnectionsCurrent.Dec()
}

func (s *DeliveryService) Submit(ctx context.Context, meta model.ConnectMetadata, section model.SectionKey, author, text string) error {
	if !s.throttle.Allow(meta.RemoteIP) {
		metrics.SubmissionsDroppedTotal.WithLabelValues("throttled").Inc()
		return ErrThrottled
	}
	if _, err := s.moderator.Submit(ctx, section, author, text); err != nil {
		metrics.SubmissionsDroppedTotal.WithLabelValues("invalid").Inc()
		return err
	}
	return nil
}

func clientInfo(conn registry.Connector) model.ClientInfo {
	meta := conn.GetMetadata()
	return model.ClientInfo{
		ConnectionID: conn.GetID(),
		Role:         meta.Role,
		RemoteIP:     meta.RemoteIP,
		ConnectedAt:  conn.GetCreatedAt(),
	}
}
