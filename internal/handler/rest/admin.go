package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/service"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// BulkRequest addresses the messages of a bulk command.
type BulkRequest struct {
	MessageIDs []model.Ref `json:"messageIds" validate:"required,min=1,dive"`
}

// AdminHandler serves the moderation dashboard.
type AdminHandler struct {
	responder
	moderator service.Moderator
	querier   service.Querier
	key       string
}

func NewAdminHandler(moderator service.Moderator, querier service.Querier, key string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		responder: responder{logger: logger},
		moderator: moderator,
		querier:   querier,
		key:       key,
	}
}

// Routes mounts the admin API on r; every route is guarded by the admin key.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Use(RequireAdminKey(h.key, h.logger))

	r.Get("/messages", h.Messages)
	r.Get("/messages/pending", h.Pending)
	r.Get("/status", h.Status)
	r.Get("/logs", h.Logs)

	r.Delete("/message/{section}/{id}", h.Delete)
	r.Post("/message/{section}/{id}/approve", h.Approve)
	r.Post("/message/{section}/{id}/reject", h.Reject)
	r.Delete("/messages/{section}", h.ClearSection)
	r.Post("/messages/clear-all", h.ClearAll)
	r.Post("/messages/approve-bulk", h.BulkApprove)
	r.Post("/messages/reject-bulk", h.BulkReject)
}

func (h *AdminHandler) Messages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.querier.Messages(r.Context()))
}

func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.querier.Pending(r.Context()))
}

func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.querier.Status(r.Context()))
}

// Logs serves the newest journal entries; a missing or malformed limit means the default.
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	h.writeJSON(w, http.StatusOK, h.querier.Logs(r.Context(), limit))
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	section, id, err := messageRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.moderator.Approve(r.Context(), section, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{Success: true, Message: "message approved"})
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	section, id, err := messageRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.moderator.Reject(r.Context(), section, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{Success: true, Message: "message rejected"})
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	section, id, err := messageRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.moderator.Delete(r.Context(), section, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{Success: true, Message: "message deleted"})
}

func (h *AdminHandler) ClearSection(w http.ResponseWriter, r *http.Request) {
	count, err := h.moderator.ClearSection(r.Context(), model.SectionKey(chi.URLParam(r, "section")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{Success: true, Message: fmt.Sprintf("%d messages deleted", count)})
}

func (h *AdminHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.moderator.ClearAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{Success: true, Message: fmt.Sprintf("%d messages deleted", count)})
}

func (h *AdminHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	refs, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}
	count, err := h.moderator.BulkApprove(r.Context(), refs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{
		Success: true,
		Message: fmt.Sprintf("%d messages approved", count),
		Count:   lo.ToPtr(count),
	})
}

func (h *AdminHandler) BulkReject(w http.ResponseWriter, r *http.Request) {
	refs, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}
	count, err := h.moderator.BulkReject(r.Context(), refs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{
		Success: true,
		Message: fmt.Sprintf("%d messages rejected", count),
		Count:   lo.ToPtr(count),
	})
}

// messageRef reads {section}/{id}. An id that is not a number addresses no message.
func messageRef(r *http.Request) (model.SectionKey, int64, error) {
	section := model.SectionKey(chi.URLParam(r, "section"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return section, 0, fmt.Errorf("%w: id %q", model.ErrNotFound, chi.URLParam(r, "id"))
	}
	return section, id, nil
}

func (h *AdminHandler) decodeBulk(w http.ResponseWriter, r *http.Request) ([]model.Ref, bool) {
	var req BulkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid message list"})
		return nil, false
	}
	if err := validate.Struct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid message list"})
		return nil, false
	}
	return req.MessageIDs, true
}
