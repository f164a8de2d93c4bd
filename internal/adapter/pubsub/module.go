package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/webitel/message-wall/config"
	"github.com/webitel/message-wall/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		NewBus,
		fx.Annotate(
			func(bus *gochannel.GoChannel) message.Publisher { return bus },
			fx.As(new(message.Publisher)),
		),
		fx.Annotate(
			func(bus *gochannel.GoChannel) message.Subscriber { return bus },
			fx.As(new(message.Subscriber)),
		),
		func(pub message.Publisher, cfg *config.Config) *EventDispatcher {
			return NewEventDispatcher(pub, cfg.Bus.Topic)
		},
		fx.Annotate(
			func(d *EventDispatcher) service.Publisher { return d },
			fx.As(new(service.Publisher)),
		),
		NewExporter,
	),
	fx.Invoke(func(lc fx.Lifecycle, bus *gochannel.GoChannel, exporter Exporter) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				// [GRACEFUL_SHUTDOWN] exporter first, it may still hold frames
				_ = exporter.Close()
				return bus.Close()
			},
		})
	}),
)
