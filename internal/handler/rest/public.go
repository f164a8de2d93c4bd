package rest

import (
	"log/slog"
	"net/http"

	"github.com/webitel/message-wall/internal/service"
)

const bannerMessage = "message wall server is running"

// PublicHandler serves the unauthenticated presentation routes.
type PublicHandler struct {
	responder
	querier service.Querier
}

func NewPublicHandler(querier service.Querier, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{responder: responder{logger: logger}, querier: querier}
}

func (h *PublicHandler) Banner(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": bannerMessage})
}

func (h *PublicHandler) Sections(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.querier.Sections(r.Context()))
}
