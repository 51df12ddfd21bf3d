package task

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/paired-app/paired/internal/auth"
	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/user"
)

const (
	ActionList     httputil.Action = "list"
	ActionCreate   httputil.Action = "create"
	ActionUpdate   httputil.Action = "update"
	ActionDelete   httputil.Action = "delete"
	ActionComplete httputil.Action = "complete"
)

// Handler serves POST /api/task behind the session guard.
type Handler struct {
	repo    *Repository
	service *Service
	logger  *logging.Logger
}

func NewHandler(repo *Repository, service *Service, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, service: service, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httputil.Dispatch(w, r, map[httputil.Action]httputil.ActionFunc{
		ActionList:     h.list,
		ActionCreate:   h.create,
		ActionUpdate:   h.update,
		ActionDelete:   h.delete,
		ActionComplete: h.complete,
	})
}

type CreateRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	RewardScore   int64  `json:"rewardScore"`
	AssigneeEmail string `json:"assigneeEmail"`
}

type UpdateRequest struct {
	ID uuid.UUID `json:"id"`
	CreateRequest
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

	tasks, err := h.repo.ListForCouple(r.Context(), claims.Email)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to list tasks", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to list tasks")
		return
	}

	httputil.WriteOK(w, "", tasks)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req CreateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}
	if req.Title == "" {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "task title is required")
		return
	}
	if req.RewardScore < 0 {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "reward must not be negative")
		return
	}

	assignee := req.AssigneeEmail
	if assignee == "" {
		// Unassigned tasks default to the partner when one is linked
		if claims.PartnerEmail == "" {
			httputil.WriteFailure(w, httputil.CodeValidationFailed, "assignee is required when no partner is linked")
			return
		}
		assignee = claims.PartnerEmail
	}

	created, err := h.repo.Create(r.Context(), &Task{
		PublisherEmail: claims.Email,
		AssigneeEmail:  assignee,
		Title:          req.Title,
		Description:    req.Description,
		RewardScore:    req.RewardScore,
	})
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to create task", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to create task")
		return
	}

	httputil.WriteOK(w, "task created", created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req UpdateRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ID == uuid.Nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}
	if req.RewardScore < 0 {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "reward must not be negative")
		return
	}

	updated, err := h.repo.Update(r.Context(), claims.Email, &Task{
		ID:            req.ID,
		Title:         req.Title,
		Description:   req.Description,
		RewardScore:   req.RewardScore,
		AssigneeEmail: req.AssigneeEmail,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to update task")
		return
	}

	httputil.WriteOK(w, "task updated", updated)
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
		h.writeError(w, r, err, "failed to delete task")
		return
	}

	httputil.WriteOK(w, "task deleted", nil)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	logger := logging.GetLoggerFromContext(r.Context())

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

	result, err := h.service.Complete(r.Context(), claims.Email, req.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteFailure(w, httputil.CodeNotFound, "task not found")
		case errors.Is(err, ErrNotAssignee):
			httputil.WriteFailure(w, httputil.CodePermissionDenied, "only the assignee may complete this task")
		case errors.Is(err, ErrAlreadyDone):
			httputil.WriteFailure(w, httputil.CodeConflict, "task already completed")
		case errors.Is(err, user.ErrNotFound):
			httputil.WriteFailure(w, httputil.CodeNotFound, "account not found")
		default:
			logger.Error("task completion failed", "error", err.Error(), "task_id", req.ID)
			httputil.WriteFailure(w, httputil.CodeInternal, "failed to complete task")
		}
		return
	}

	httputil.WriteOK(w, "task completed", result)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteFailure(w, httputil.CodeNotFound, "task not found")
	case errors.Is(err, ErrNotPublisher):
		httputil.WriteFailure(w, httputil.CodePermissionDenied, "only the publisher may change this task")
	case errors.Is(err, ErrAlreadyDone):
		httputil.WriteFailure(w, httputil.CodeConflict, "task already completed")
	default:
		logging.GetLoggerFromContext(r.Context()).Error(internalMsg, "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, internalMsg)
	}
}
