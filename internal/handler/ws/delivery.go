package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/registry"
	wsmarshaller "github.com/webitel/message-wall/internal/handler/marshaller/ws"
	"github.com/webitel/message-wall/internal/metrics"
	"github.com/webitel/message-wall/internal/service"
	"golang.org/x/sync/errgroup"
)

var errSessionClosed = errors.New("session closed")

// Settings tunes the websocket pumps.
type Settings struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
	AllowedOrigins  []string
}

type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	limits    *ConnectionLimits
	settings  Settings
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, limits *ConnectionLimits, settings Settings) *WSHandler {
	if settings.PingInterval <= 0 || settings.PingInterval >= settings.PongTimeout {
		settings.PingInterval = settings.PongTimeout * 9 / 10
	}
	h := &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		limits:    limits,
		settings:  settings,
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: settings.WriteTimeout,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.settings.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.settings.AllowedOrigins, "*") || slices.Contains(h.settings.AllowedOrigins, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	meta := model.ConnectMetadata{
		Role:      model.ParseClientRole(r.URL.Query().Get("role")),
		RemoteIP:  remoteIP(r),
		UserAgent: r.UserAgent(),
	}

	// 1. ADMISSION
	if ok, reason := h.limits.Acquire(meta.RemoteIP); !ok {
		metrics.WebSocketConnectionsRejected.WithLabelValues(string(reason)).Inc()
		h.logger.Warn("WS_CONNECTION_REJECTED", "reason", reason, "ip", meta.RemoteIP)
		http.Error(w, http.StatusText(reason.StatusCode()), reason.StatusCode())
		return
	}
	defer h.limits.Release(meta.RemoteIP)

	// 2. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues(string(meta.Role), "upgrade_failed").Inc()
		h.logger.Warn("WS_UPGRADE_FAILED", "err", err, "ip", meta.RemoteIP)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 3. SUBSCRIBE: snapshot is the first frame in the queue
	conn, err := h.deliverer.Subscribe(ctx, meta)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues(string(meta.Role), "error").Inc()
		h.logger.Error("WS_SUBSCRIBE_FAILED", "err", err, "ip", meta.RemoteIP)
		return
	}
	defer h.deliverer.Unsubscribe(conn)
	metrics.WebSocketConnectionsTotal.WithLabelValues(string(meta.Role), "ok").Inc()

	h.logger.Info("WS_OPENED", "conn_id", conn.GetID(), "role", meta.Role, "ip", meta.RemoteIP)

	// 4. PUMPS
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.readPump(gctx, ws, meta) })
	g.Go(func() error { return h.writePump(gctx, ws, conn) })
	g.Go(func() error {
		<-gctx.Done()
		// unblocks the reader
		_ = ws.Close()
		return nil
	})
	err = g.Wait()

	h.logger.Info("WS_CLOSED", "conn_id", conn.GetID(), "dropped", conn.Dropped(), "reason", err)
}

// readPump decodes client frames. Only new-message is accepted; anything
// else, and every refused submission, is dropped without a reply.
func (h *WSHandler) readPump(ctx context.Context, ws *websocket.Conn, meta model.ConnectMetadata) error {
	ws.SetReadLimit(h.settings.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.settings.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.settings.PongTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WS_READ_FAILED", "err", err)
			}
			return errSessionClosed
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.settings.PongTimeout))

		p, err := wsmarshaller.UnmarshallNewMessage(data)
		if err != nil {
			h.logger.Debug("WS_FRAME_IGNORED", "err", err, "ip", meta.RemoteIP)
			continue
		}

		if err := h.deliverer.Submit(ctx, meta, model.SectionKey(p.Section), p.Author, p.Text); err != nil {
			h.logger.Debug("WS_SUBMISSION_DROPPED", "err", err, "ip", meta.RemoteIP)
		}
	}
}

// writePump is the only writer of ws.
func (h *WSHandler) writePump(ctx context.Context, ws *websocket.Conn, conn registry.Connector) error {
	ticker := time.NewTicker(h.settings.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errSessionClosed

		case <-conn.Done():
			// evicted as a slow consumer; the client reconnects and resyncs from a snapshot
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync"),
				time.Now().Add(h.settings.WriteTimeout))
			return errSessionClosed

		case ev := <-conn.Recv():
			data, err := wsmarshaller.MarshallDeliveryEvent(ev)
			if err != nil {
				h.logger.Error("WS_MARSHAL_FAILED", "err", err, "event", ev.GetKind().String())
				continue
			}

			_ = ws.SetWriteDeadline(time.Now().Add(h.settings.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WebSocketWriteFailures.Inc()
				h.logger.Warn("WS_SEND_FAILED", "err", err, "conn_id", conn.GetID())
				return err
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.settings.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
