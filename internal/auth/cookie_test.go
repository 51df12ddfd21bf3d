package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCookieEnvelope_RawJSON(t *testing.T) {
	env, err := ParseCookieEnvelope(`{"name":"alice@example.com","value":"tok123"}`)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", env.Name)
	assert.Equal(t, "tok123", env.Value)
}

func TestParseCookieEnvelope_URLEncoded(t *testing.T) {
	raw := url.QueryEscape(`{"name":"alice@example.com","value":"tok123","expires":"2030-01-01T00:00:00Z"}`)

	env, err := ParseCookieEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", env.Name)
	assert.Equal(t, "tok123", env.Value)
	assert.Equal(t, "2030-01-01T00:00:00Z", env.Expires)
}

func TestParseCookieEnvelope_Garbage(t *testing.T) {
	_, err := ParseCookieEnvelope("definitely not json")
	assert.Error(t, err)
}

func TestCookieEnvelope_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires string
		want    bool
	}{
		{"empty means not expired", "", false},
		{"rfc3339 in the past", "2026-05-31T12:00:00Z", true},
		{"rfc3339 in the future", "2026-06-02T12:00:00Z", false},
		{"http date in the past", "Sun, 31 May 2026 12:00:00 GMT", true},
		{"unparseable means not expired", "next tuesday", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := CookieEnvelope{Expires: tt.expires}
			assert.Equal(t, tt.want, env.ExpiredAt(now))
		})
	}
}

func TestSetSessionCookie_RoundTrips(t *testing.T) {
	rec := httptest.NewRecorder()

	err := SetSessionCookie(rec, CookieEnvelope{
		Name:    "alice@example.com",
		Value:   "tok123",
		Expires: "2030-01-01T00:00:00Z",
	}, time.Hour)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "/", c.Path)
	assert.False(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	decoded, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)

	var env CookieEnvelope
	require.NoError(t, json.Unmarshal([]byte(decoded), &env))
	assert.Equal(t, "alice@example.com", env.Name)
	assert.Equal(t, "tok123", env.Value)

	// And the parser accepts exactly what the setter wrote
	parsed, err := ParseCookieEnvelope(c.Value)
	require.NoError(t, err)
	assert.Equal(t, env, *parsed)
}

func TestClearSessionCookie_ExpiresInThePast(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.True(t, c.Expires.Before(time.Now()))
}
