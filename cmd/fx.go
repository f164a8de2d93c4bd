package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jonboulle/clockwork"
	"github.com/webitel/message-wall/config"
	httpsrv "github.com/webitel/message-wall/infra/server/http"
	"github.com/webitel/message-wall/infra/otel"
	"github.com/webitel/message-wall/internal/adapter/pubsub"
	"github.com/webitel/message-wall/internal/domain/registry"
	bushandler "github.com/webitel/message-wall/internal/handler/bus"
	"github.com/webitel/message-wall/internal/handler/rest"
	wshandler "github.com/webitel/message-wall/internal/handler/ws"
	"github.com/webitel/message-wall/internal/service"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		Options(cfg),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
	)
}

// Options is the full dependency graph of the server.
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideClock,
		),
		otel.Module(version),
		service.Module,
		registry.Module,
		pubsub.Module,
		bushandler.Module,
		wshandler.Module,
		rest.Module,
		httpsrv.Module,
	)
}

// ProvideLogger builds the process logger. The level follows the config file.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(config.ParseLevel(cfg.Log.Level))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", ServiceName, "version", version)
	slog.SetDefault(logger)

	cfg.OnChange(func(next *config.Config) {
		level.Set(config.ParseLevel(next.Log.Level))
	})
	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With("component", "watermill"))
}

func ProvideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}
