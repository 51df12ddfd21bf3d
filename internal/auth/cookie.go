package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// CookieName is the literal transport cookie name. Legacy clients depend
// on it, envelope shape included.
const CookieName = "cookie"

// CookieEnvelope is the JSON value the browser sends back on every request:
// Name is the email used for the server-mirror lookup, Value is the signed
// session token, Expires is an optional absolute expiry.
type CookieEnvelope struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Expires string `json:"expires,omitempty"`
}

// ParseCookieEnvelope decodes a raw cookie value. Clients sometimes send
// the JSON URL-encoded once, so a failed raw parse gets one unescape retry.
func ParseCookieEnvelope(raw string) (*CookieEnvelope, error) {
	var env CookieEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		return &env, nil
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(decoded), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ExpiredAt reports whether the envelope's own expiry has passed. An
// absent or unparseable Expires field counts as not expired; the token's
// embedded expiry still applies either way.
func (e *CookieEnvelope) ExpiredAt(now time.Time) bool {
	if e.Expires == "" {
		return false
	}

	ts, err := time.Parse(time.RFC3339, e.Expires)
	if err != nil {
		ts, err = http.ParseTime(e.Expires)
		if err != nil {
			return false
		}
	}

	return ts.Before(now)
}

// SetSessionCookie writes the envelope to the response. The cookie is
// path-scoped and same-site but deliberately not HttpOnly: the front end
// reads the display name out of it.
func SetSessionCookie(w http.ResponseWriter, env CookieEnvelope, ttl time.Duration) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(string(payload)),
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: false,
	})
	return nil
}

// ClearSessionCookie forces client-side deletion by re-setting the cookie
// with an expiry one day in the past.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: false,
	})
}
