package bus

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/message-wall/config"
	"go.uber.org/fx"
)

var Module = fx.Module("bus-handler",
	fx.Provide(
		NewEventHandler,
		NewWatermillRouter,
	),

	fx.Invoke(RegisterHandlers),
)

func RegisterHandlers(lc fx.Lifecycle, router *message.Router, h *EventHandler, sub message.Subscriber, cfg *config.Config, logger *slog.Logger) {
	h.RegisterHandlers(router, sub, cfg.Bus.Topic)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return StartRouter(ctx, router, logger)
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
}
