package rest

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/message-wall/config"
)

// AdminKeyHeader may carry the key instead of the ?key= query parameter.
const AdminKeyHeader = "X-Admin-Key"

// ErrAdminKeyRequired is returned when the admin routes would start unprotected.
var ErrAdminKeyRequired = errors.New("admin key is required; set admin.key or run with --insecure")

// AdminKey resolves the key guarding the admin routes. An empty key is only
// accepted in insecure mode, and then every moderation route is open.
func AdminKey(cfg config.AdminConfig, logger *slog.Logger) (string, error) {
	if cfg.Key != "" {
		return cfg.Key, nil
	}
	if !cfg.Insecure {
		return "", ErrAdminKeyRequired
	}
	logger.Warn("ADMIN_ROUTES_UNPROTECTED", "reason", "insecure mode without admin key")
	return "", nil
}

// RequireAdminKey rejects requests without the shared admin key.
// An empty key leaves the routes open.
func RequireAdminKey(key string, logger *slog.Logger) func(http.Handler) http.Handler {
	rs := responder{logger: logger}
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.URL.Query().Get("key")
			if given == "" {
				given = r.Header.Get(AdminKeyHeader)
			}
			if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				rs.writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// [LOGGING_MIDDLEWARE]
// Structured access log with latency and request id.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST_HANDLED",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
