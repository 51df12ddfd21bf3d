package whisper

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/paired-app/paired/internal/auth"
	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
)

const (
	ActionList     httputil.Action = "list"
	ActionSend     httputil.Action = "send"
	ActionMarkRead httputil.Action = "markRead"
	ActionDelete   httputil.Action = "delete"
)

// Handler serves POST /api/whisper behind the session guard. Whispers are
// plain CRUD, so the handler talks to the repository directly.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httputil.Dispatch(w, r, map[httputil.Action]httputil.ActionFunc{
		ActionList:     h.list,
		ActionSend:     h.send,
		ActionMarkRead: h.markRead,
		ActionDelete:   h.delete,
	})
}

type SendRequest struct {
	Content string `json:"content"`
}

type IDRequest struct {
	ID uuid.UUID `json:"id"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, _ json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}
	if claims.PartnerEmail == "" {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "link a partner to use whispers")
		return
	}

	whispers, err := h.repo.ListConversation(r.Context(), claims.Email, claims.PartnerEmail)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to list whispers", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to list whispers")
		return
	}

	httputil.WriteOK(w, "", whispers)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}
	if claims.PartnerEmail == "" {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "link a partner to use whispers")
		return
	}

	var req SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}
	if req.Content == "" {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "whisper content is required")
		return
	}

	sent, err := h.repo.Send(r.Context(), claims.Email, claims.PartnerEmail, req.Content)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to send whisper", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to send whisper")
		return
	}

	httputil.WriteOK(w, "whisper sent", sent)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req IDRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ID == uuid.Nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	if err := h.repo.MarkRead(r.Context(), claims.Email, req.ID); err != nil {
		h.writeError(w, r, err, "failed to mark whisper read")
		return
	}

	httputil.WriteOK(w, "whisper marked read", nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req IDRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ID == uuid.Nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	if err := h.repo.Delete(r.Context(), claims.Email, req.ID); err != nil {
		h.writeError(w, r, err, "failed to delete whisper")
		return
	}

	httputil.WriteOK(w, "whisper deleted", nil)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteFailure(w, httputil.CodeNotFound, "whisper not found")
	case errors.Is(err, ErrNotYours):
		httputil.WriteFailure(w, httputil.CodePermissionDenied, "whisper belongs to someone else")
	default:
		logging.GetLoggerFromContext(r.Context()).Error(internalMsg, "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, internalMsg)
	}
}
