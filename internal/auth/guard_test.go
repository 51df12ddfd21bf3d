package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
)

type fakeVerifier struct {
	claims *SessionClaims
	calls  int
}

func (f *fakeVerifier) Verify(tokenStr string) *SessionClaims {
	f.calls++
	return f.claims
}

type fakeMirror struct {
	token string
	err   error
	calls int
}

func (f *fakeMirror) Lookup(ctx context.Context, email string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func guardRequest(t *testing.T, cookieValue string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/task", nil)
	if cookieValue != "" {
		// Envelopes travel URL-encoded, like real clients send them
		req.AddCookie(&http.Cookie{Name: CookieName, Value: url.QueryEscape(cookieValue)})
	}
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)

	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func validEnvelope(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(CookieEnvelope{
		Name:    "alice@example.com",
		Value:   "tok123",
		Expires: time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	return string(raw)
}

func TestGuard_MissingCookie(t *testing.T) {
	verifier := &fakeVerifier{}
	mirror := &fakeMirror{}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	nextCalled := false
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})).ServeHTTP(rec, guardRequest(t, ""))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthRequired, env.Code)
	assert.False(t, nextCalled)

	// No cookie means nothing downstream should have been consulted
	assert.Zero(t, verifier.calls)
	assert.Zero(t, mirror.calls)
}

func TestGuard_MalformedEnvelope(t *testing.T) {
	verifier := &fakeVerifier{}
	mirror := &fakeMirror{}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})).ServeHTTP(rec, guardRequest(t, "not json at all"))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthRequired, env.Code)
	assert.Zero(t, verifier.calls)
	assert.Zero(t, mirror.calls)
}

func TestGuard_InvalidToken_SkipsMirror(t *testing.T) {
	verifier := &fakeVerifier{claims: nil}
	mirror := &fakeMirror{token: "tok123"}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})).ServeHTTP(rec, guardRequest(t, validEnvelope(t)))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthRequired, env.Code)

	// Signature verification failed, so the mirror was never read
	assert.Equal(t, 1, verifier.calls)
	assert.Zero(t, mirror.calls)
}

func TestGuard_ExpiredEnvelope(t *testing.T) {
	claims := &SessionClaims{Email: "alice@example.com", UserID: uuid.New(), Name: "Alice"}
	verifier := &fakeVerifier{claims: claims}
	mirror := &fakeMirror{token: "tok123"}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	raw, err := json.Marshal(CookieEnvelope{
		Name:    "alice@example.com",
		Value:   "tok123",
		Expires: time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})).ServeHTTP(rec, guardRequest(t, string(raw)))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthExpired, env.Code)
	assert.Zero(t, mirror.calls)

	// Expiry also instructs the client to drop the cookie
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestGuard_MirrorMismatch(t *testing.T) {
	claims := &SessionClaims{Email: "alice@example.com", UserID: uuid.New(), Name: "Alice"}
	verifier := &fakeVerifier{claims: claims}
	// Correctly signed token, but a newer login rotated the mirror
	mirror := &fakeMirror{token: "a-newer-token"}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})).ServeHTTP(rec, guardRequest(t, validEnvelope(t)))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthExpired, env.Code)
	assert.Equal(t, 1, mirror.calls)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestGuard_MirrorGone(t *testing.T) {
	claims := &SessionClaims{Email: "alice@example.com", UserID: uuid.New(), Name: "Alice"}
	verifier := &fakeVerifier{claims: claims}
	mirror := &fakeMirror{err: ErrSessionNotFound}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})).ServeHTTP(rec, guardRequest(t, validEnvelope(t)))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthExpired, env.Code)
}

func TestGuard_MirrorBackendError_FailsClosed(t *testing.T) {
	claims := &SessionClaims{Email: "alice@example.com", UserID: uuid.New(), Name: "Alice"}
	verifier := &fakeVerifier{claims: claims}
	mirror := &fakeMirror{err: errors.New("redis unavailable")}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})).ServeHTTP(rec, guardRequest(t, validEnvelope(t)))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeAuthExpired, env.Code)
}

func TestGuard_Success_PutsClaimsInContext(t *testing.T) {
	claims := &SessionClaims{
		Email:        "alice@example.com",
		UserID:       uuid.New(),
		Name:         "Alice",
		PartnerEmail: "bob@example.com",
	}
	verifier := &fakeVerifier{claims: claims}
	mirror := &fakeMirror{token: "tok123"}
	guard := NewGuard(verifier, mirror, logging.NewLogger(true))

	rec := httptest.NewRecorder()
	var gotClaims *SessionClaims
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		gotClaims = c
		httputil.WriteOK(w, "ok", nil)
	})).ServeHTTP(rec, guardRequest(t, validEnvelope(t)))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeOK, env.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, claims, gotClaims)
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, 1, mirror.calls)
}

func TestClaimsFromContext_Unset(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
