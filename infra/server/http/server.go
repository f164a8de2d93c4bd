// Package httpsrv runs the HTTP listener that carries the REST and realtime routes.
package httpsrv

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/webitel/message-wall/config"
	"go.uber.org/fx"
)

type Server struct {
	*http.Server
	logger *slog.Logger
	addr   net.Addr
}

func NewServer(cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:        cfg.HTTP.Addr,
			Handler:     handler,
			ReadTimeout: cfg.HTTP.ReadTimeout,
			// websocket sessions set their own write deadlines
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		logger: logger,
	}
}

// Start binds the listener synchronously so a busy port fails the app start.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()
	s.logger.Info("HTTP_SERVER_STARTED", "addr", s.addr.String())

	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVER_FAILED", "err", err)
		}
	}()
	return nil
}

// ListenAddr is the bound address, known once Start returned.
func (s *Server) ListenAddr() net.Addr { return s.addr }

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP_SERVER_STOPPING")
	return s.Shutdown(ctx)
}

var Module = fx.Module("http-server",
	fx.Provide(
		fx.Annotate(
			NewServer,
			fx.ParamTags(``, `name:"router"`, ``),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: s.Start,
			OnStop:  s.Stop,
		})
	}),
)
