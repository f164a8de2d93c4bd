package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const HandlerName = "ON_WALL_EVENT"

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("ROUTER_SETUP_FAILED: %w", err)
	}
	return router, nil
}

// [REGISTRATION_PIPELINE]
func (h *EventHandler) RegisterHandlers(router *message.Router, sub message.Subscriber, topic string) {
	router.AddConsumerHandler(HandlerName, topic, sub, Bind(h)).AddMiddleware(
		TraceIDMiddleware,
		LoggingMiddleware(h.logger),
	)
	h.logger.Info("BUS_PIPELINE_READY", "topic", topic)
}

// StartRouter runs the router in the background and returns once every
// handler is subscribed, so no event published afterwards can be lost.
func StartRouter(ctx context.Context, router *message.Router, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := router.Run(context.Background()); err != nil {
			logger.Error("ROUTER_STOPPED", "err", err)
			errCh <- err
		}
	}()

	select {
	case <-router.Running():
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
