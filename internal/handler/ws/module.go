package ws

import (
	"github.com/jonboulle/clockwork"
	"github.com/webitel/message-wall/config"
	"github.com/webitel/message-wall/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ws-handler",
	fx.Provide(
		ProvideConnectionLimits,
		func(cfg *config.Config) Settings {
			rt := cfg.Realtime
			return Settings{
				WriteTimeout:    rt.WriteTimeout,
				PongTimeout:     rt.PongTimeout,
				PingInterval:    rt.PingInterval,
				MaxMessageBytes: rt.MaxMessageBytes,
				AllowedOrigins:  cfg.HTTP.AllowedOrigins,
			}
		},
		NewWSHandler,
	),
)

func ProvideConnectionLimits(cfg *config.Config, clock clockwork.Clock) (*ConnectionLimits, error) {
	rt := cfg.Realtime
	rate, err := service.NewThrottle(rt.ConnectRate, rt.ConnectBurst, cfg.Moderation.ThrottleCacheSize, clock)
	if err != nil {
		return nil, err
	}
	return NewConnectionLimits(rt.MaxConnections, rt.MaxConnectionsPerIP, rate), nil
}
