package gift

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
	ActionPublish  httputil.Action = "publish"
	ActionUpdate   httputil.Action = "update"
	ActionShow     httputil.Action = "show"
	ActionHide     httputil.Action = "hide"
	ActionDelete   httputil.Action = "delete"
	ActionExchange httputil.Action = "exchange"
	ActionRecords  httputil.Action = "records"
)

// Handler serves POST /api/gift behind the session guard.
type Handler struct {
	repo     *Repository
	exchange *ExchangeService
	logger   *logging.Logger
}

func NewHandler(repo *Repository, exchange *ExchangeService, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, exchange: exchange, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httputil.Dispatch(w, r, map[httputil.Action]httputil.ActionFunc{
		ActionList:     h.list,
		ActionPublish:  h.publish,
		ActionUpdate:   h.update,
		ActionShow:     h.setVisibility(true),
		ActionHide:     h.setVisibility(false),
		ActionDelete:   h.delete,
		ActionExchange: h.doExchange,
		ActionRecords:  h.records,
	})
}

type PublishRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURL      string `json:"imageUrl"`
	RequiredScore int64  `json:"requiredScore"`
	Remaining     int64  `json:"remaining"`
}

type UpdateRequest struct {
	ID uuid.UUID `json:"id"`
	PublishRequest
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

	gifts, err := h.repo.List(r.Context(), claims.Email)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to list gifts", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to list gifts")
		return
	}

	httputil.WriteOK(w, "", gifts)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req PublishRequest
	if err := json.Unmarshal(data, &req); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}
	if req.Name == "" {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "gift name is required")
		return
	}
	if req.RequiredScore < 0 || req.Remaining < 0 {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "score and stock must not be negative")
		return
	}

	created, err := h.repo.Create(r.Context(), &Gift{
		PublisherEmail: claims.Email,
		Name:           req.Name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		RequiredScore:  req.RequiredScore,
		Remaining:      req.Remaining,
	})
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to publish gift", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to publish gift")
		return
	}

	httputil.WriteOK(w, "gift published", created)
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
	if req.RequiredScore < 0 || req.Remaining < 0 {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "score and stock must not be negative")
		return
	}

	updated, err := h.repo.Update(r.Context(), claims.Email, &Gift{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		RequiredScore: req.RequiredScore,
		Remaining:     req.Remaining,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to update gift")
		return
	}

	httputil.WriteOK(w, "gift updated", updated)
}

func (h *Handler) setVisibility(visible bool) httputil.ActionFunc {
	return func(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
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

		if err := h.repo.SetVisibility(r.Context(), claims.Email, req.ID, visible); err != nil {
			h.writeError(w, r, err, "failed to change gift visibility")
			return
		}

		httputil.WriteOK(w, "gift visibility changed", nil)
	}
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
		h.writeError(w, r, err, "failed to delete gift")
		return
	}

	httputil.WriteOK(w, "gift deleted", nil)
}

func (h *Handler) doExchange(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
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

	receipt, err := h.exchange.Exchange(r.Context(), claims.Email, req.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteFailure(w, httputil.CodeNotFound, "gift not found")
		case errors.Is(err, ErrOutOfStock):
			httputil.WriteFailure(w, httputil.CodeConflict, "gift is out of stock")
		case errors.Is(err, ErrSelfExchange):
			httputil.WriteFailure(w, httputil.CodeConflict, "cannot exchange your own gift")
		case errors.Is(err, user.ErrInsufficientScore):
			httputil.WriteFailure(w, httputil.CodeConflict, "not enough points")
		case errors.Is(err, user.ErrNotFound):
			httputil.WriteFailure(w, httputil.CodeNotFound, "account not found")
		default:
			logger.Error("exchange failed", "error", err.Error(), "gift_id", req.ID)
			httputil.WriteFailure(w, httputil.CodeInternal, "exchange failed")
		}
		return
	}

	logger.Info("gift exchanged", "gift_id", receipt.GiftID, "buyer", receipt.BuyerEmail, "cost", receipt.Cost)
	httputil.WriteOK(w, "exchange complete", receipt)
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request, _ json.RawMessage) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	records, err := h.repo.ListExchanges(r.Context(), claims.Email)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to list exchanges", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to list exchange records")
		return
	}

	httputil.WriteOK(w, "", records)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteFailure(w, httputil.CodeNotFound, "gift not found")
	case errors.Is(err, ErrNotPublisher):
		httputil.WriteFailure(w, httputil.CodePermissionDenied, "only the publisher may change this gift")
	default:
		logging.GetLoggerFromContext(r.Context()).Error(internalMsg, "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, internalMsg)
	}
}
