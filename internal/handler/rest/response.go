package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/message-wall/internal/domain/model"
)

// CommandResponse acknowledges an admin command.
type CommandResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// responder writes JSON bodies and logs through the handler's logger.
type responder struct {
	logger *slog.Logger
}

func (rs responder) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Debug("RESPONSE_WRITE_FAILED", "err", err)
	}
}

// writeError classifies domain errors into status codes.
func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownSection):
		rs.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "section not found"})
	case errors.Is(err, model.ErrNotFound):
		rs.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "message not found"})
	case errors.Is(err, model.ErrInvalidInput):
		rs.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		rs.logger.Error("REQUEST_FAILED",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		rs.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
