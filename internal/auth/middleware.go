package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const claimsContextKey ContextKey = "session_claims"

// TokenVerifier validates a session token and returns its claims, or nil.
type TokenVerifier interface {
	Verify(tokenStr string) *SessionClaims
}

// SessionMirror looks up the server-side copy of a session token.
type SessionMirror interface {
	Lookup(ctx context.Context, email string) (string, error)
}

// Guard gates the mutating route groups. Every request passes the same
// ordered checks: cookie presence, envelope parse, token verification,
// explicit envelope expiry, then the mirror cross-check. The first failing
// check answers; later checks never run.
//
// The token signature catches forged or tampered cookies; the mirror
// comparison catches correctly signed cookies replayed after a logout or
// after a newer login rotated the session. Both are required.
type Guard struct {
	codec    TokenVerifier
	sessions SessionMirror
	logger   *logging.Logger
}

func NewGuard(codec TokenVerifier, sessions SessionMirror, logger *logging.Logger) *Guard {
	return &Guard{codec: codec, sessions: sessions, logger: logger}
}

// Require validates the session cookie before the route handler runs.
// Rejections use the uniform envelope at HTTP 200 like every other
// response; only the embedded code tells the client to re-login.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login")
			return
		}

		env, err := ParseCookieEnvelope(cookie.Value)
		if err != nil || env.Value == "" {
			httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login again")
			return
		}

		claims := g.codec.Verify(env.Value)
		if claims == nil {
			httputil.WriteFailure(w, httputil.CodeAuthRequired, "please login again")
			return
		}

		if env.ExpiredAt(time.Now()) {
			ClearSessionCookie(w)
			httputil.WriteFailure(w, httputil.CodeAuthExpired, "login expired, please login again")
			return
		}

		mirrored, err := g.sessions.Lookup(r.Context(), env.Name)
		if err != nil || mirrored != env.Value {
			if err != nil && err != ErrSessionNotFound {
				g.logger.Error("session mirror lookup failed", "error", err.Error())
			}
			ClearSessionCookie(w)
			httputil.WriteFailure(w, httputil.CodeAuthExpired, "login expired, please login again")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// ContextWithClaims attaches verified session claims to a context.
func ContextWithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the verified session claims from the request
// context. Only set on requests that passed the guard.
func ClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*SessionClaims)
	return claims, ok
}
