package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/ratelimit"
	"github.com/paired-app/paired/internal/user"
)

// Identity actions. The table below is the complete set; anything else is
// rejected before a handler runs.
const (
	ActionRegister httputil.Action = "register"
	ActionLogin    httputil.Action = "login"
	ActionLogout   httputil.Action = "logout"
)

// Profile actions (behind the session guard).
const (
	ActionProfileGet    httputil.Action = "get"
	ActionProfileUpdate httputil.Action = "update"
)

// Handler serves the identity and profile routes.
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name         string  `json:"name"`
	PartnerEmail *string `json:"partnerEmail"`
}

// UserResponse is an account as exposed on the wire.
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Score        int64     `json:"score"`
	PartnerEmail string    `json:"partnerEmail,omitempty"`
}

func toUserResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Score: u.Score,
	}
	if u.PartnerEmail != nil {
		resp.PartnerEmail = *u.PartnerEmail
	}
	return resp
}

// Identity handles POST /api/identity. These routes run without the guard:
// they must be reachable before a session exists.
func (h *Handler) Identity(w http.ResponseWriter, r *http.Request) {
	httputil.Dispatch(w, r, map[httputil.Action]httputil.ActionFunc{
		ActionRegister: h.register,
		ActionLogin:    h.login,
		ActionLogout:   h.logout,
	})
}

// Profile handles POST /api/profile, behind the guard.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	httputil.Dispatch(w, r, map[httputil.Action]httputil.ActionFunc{
		ActionProfileGet:    h.profileGet,
		ActionProfileUpdate: h.profileUpdate,
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			httputil.WriteFailure(w, httputil.CodeConflict, "email already registered")
		case errors.Is(err, user.ErrDuplicateName):
			httputil.WriteFailure(w, httputil.CodeConflict, "display name already taken")
		case errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrNameRequired),
			errors.Is(err, ErrPasswordRequired),
			errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrInvalidEmailFormat):
			httputil.WriteFailure(w, httputil.CodeValidationFailed, err.Error())
		default:
			logger.Error("registration failed", "error", err.Error())
			httputil.WriteFailure(w, httputil.CodeInternal, "failed to register")
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID, "email", newUser.Email)
	httputil.WriteOK(w, "registered", toUserResponse(newUser))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.Unmarshal(data, &req); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials", "email", req.Email)
			httputil.WriteFailure(w, httputil.CodeAuthRequired, "invalid email or password")
			return
		}
		logger.Error("login failed", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to login")
		return
	}

	env := CookieEnvelope{
		Name:    session.User.Email,
		Value:   session.Token,
		Expires: session.ExpiresAt.Format(time.RFC3339),
	}
	if err := SetSessionCookie(w, env, time.Until(session.ExpiresAt)); err != nil {
		logger.Error("failed to set session cookie", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to login")
		return
	}

	logger.Info("user logged in", "email", session.User.Email)
	httputil.WriteOK(w, "logged in", toUserResponse(session.User))
}

// logout stays outside the guard: even a stale or half-broken cookie
// should still clear the mirror and the client state.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ json.RawMessage) {
	logger := logging.GetLoggerFromContext(r.Context())

	if cookie, err := r.Cookie(CookieName); err == nil {
		if env, err := ParseCookieEnvelope(cookie.Value); err == nil && env.Name != "" {
			if err := h.service.Logout(r.Context(), env.Name); err != nil {
				logger.Warn("failed to revoke session", "error", err.Error())
			}
		}
	}

	ClearSessionCookie(w)
	httputil.WriteOK(w, "logged out", nil)
}

func (h *Handler) profileGet(w http.ResponseWriter, r *http.Request, _ json.RawMessage) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	account, err := h.service.users.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.WriteFailure(w, httputil.CodeNotFound, "account not found")
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to load profile", "error", err.Error())
		httputil.WriteFailure(w, httputil.CodeInternal, "failed to load profile")
		return
	}

	httputil.WriteOK(w, "", toUserResponse(account))
}

func (h *Handler) profileUpdate(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	logger := logging.GetLoggerFromContext(r.Context())

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
		return
	}

	var req UpdateProfileRequest
	if err := json.Unmarshal(data, &req); err != nil {
		httputil.WriteFailure(w, httputil.CodeValidationFailed, "invalid request body")
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), claims.Email, req.Name, req.PartnerEmail)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateName):
			httputil.WriteFailure(w, httputil.CodeConflict, "display name already taken")
		case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidEmailFormat):
			httputil.WriteFailure(w, httputil.CodeValidationFailed, err.Error())
		case errors.Is(err, user.ErrNotFound):
			httputil.WriteFailure(w, httputil.CodeNotFound, "account not found")
		default:
			logger.Error("profile update failed", "error", err.Error())
			httputil.WriteFailure(w, httputil.CodeInternal, "failed to update profile")
		}
		return
	}

	logger.Info("profile updated", "email", claims.Email)
	httputil.WriteOK(w, "profile updated", toUserResponse(updated))
}

// limited applies the IP rate limit for a purpose and answers the request
// when the caller is over it.
func (h *Handler) limited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, purpose)
	if err != nil {
		// A broken limiter must not lock out legitimate logins
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.WriteFailure(w, httputil.CodeConflict, "too many attempts, please try again later")
		return true
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
