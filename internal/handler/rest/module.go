package rest

import (
	"log/slog"
	"net/http"

	"github.com/webitel/message-wall/config"
	"github.com/webitel/message-wall/internal/handler/ws"
	"github.com/webitel/message-wall/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rest-handler",
	fx.Provide(
		NewPublicHandler,
		func(moderator service.Moderator, querier service.Querier, cfg *config.Config, logger *slog.Logger) (*AdminHandler, error) {
			key, err := AdminKey(cfg.Admin, logger)
			if err != nil {
				return nil, err
			}
			return NewAdminHandler(moderator, querier, key, logger), nil
		},
		fx.Annotate(
			func(public *PublicHandler, admin *AdminHandler, realtime *ws.WSHandler, cfg *config.Config, logger *slog.Logger) http.Handler {
				return NewRouter(public, admin, realtime, cfg.HTTP.AllowedOrigins, logger)
			},
			fx.ResultTags(`name:"router"`),
		),
	),
)
