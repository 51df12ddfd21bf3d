package favorite

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
	ActionList   httputil.Action = "list"
	ActionAdd    httputil.Action = "add"
	ActionRemove httputil.Action = "remove"
)

// Handler serves POST /api/favorite behind the session guard.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httputil.Dispatch(w, r, map[httputil.Action]httputil.ActionFunc{
		ActionList:   h.list,
		ActionAdd:    h.add,
		ActionRemove: h.remove,
	})
}

type TargetRequest struct {
	Kind     string    `json:"kind"`
	TargetID uuid.UUID `json:"targetId"`
}

type ListRequest struct {
	Kind string `json:"kind"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req ListRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
			return
		}
	}

	favorites, err := h.repo.List(r.Context(), claims.Email, req.Kind)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			httputil.WriteFailure(w, httputil.CodeValidationFailed, "unknown favorite kind")
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to list favorites", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to list favorites")
		return
	}

	httputil.WriteOK(w, "", favorites)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req TargetRequest
	if err := json.Unmarshal(data, &req); err != nil || req.TargetID == uuid.Nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	added, err := h.repo.Add(r.Context(), claims.Email, req.Kind, req.TargetID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKind):
			httputil.WriteFailure(w, httputil.CodeValidationFailed, "unknown favorite kind")
		case errors.Is(err, ErrDuplicate):
			httputil.WriteFailure(w, httputil.CodeConflict, "already favorited")
		default:
			logging.GetLoggerFromContext(r.Context()).Error("failed to add favorite", "error", err.Error())
			httputil.WriteFailure(w, httputil.CodeInternal, "failed to add favorite")
		}
		return
	}

	httputil.WriteOK(w, "favorite added", added)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req TargetRequest
	if err := json.Unmarshal(data, &req); err != nil || req.TargetID == uuid.Nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	if err := h.repo.Remove(r.Context(), claims.Email, req.Kind, req.TargetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteFailure(w, httputil.CodeNotFound, "favorite not found")
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to remove favorite", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to remove favorite")
		return
	}

	httputil.WriteOK(w, "favorite removed", nil)
}
