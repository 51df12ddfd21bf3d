package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, "done", map[string]string{"id": "42"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, CodeOK, env.Code)
	assert.Equal(t, "done", env.Msg)
	assert.Equal(t, map[string]any{"id": "42"}, env.Data)
}

func TestWriteOK_DefaultsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, "", nil)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "ok", env.Msg)
	assert.Nil(t, env.Data)
}

func TestWriteFailure_KeepsHTTP200(t *testing.T) {
	for _, code := range []int{
		CodeValidationFailed,
		CodeAuthRequired,
		CodePermissionDenied,
		CodeNotFound,
		CodeConflict,
		CodeAuthExpired,
		CodeInternal,
	} {
		rec := httptest.NewRecorder()
		WriteFailure(rec, code, "nope")

		// Clients switch on the embedded code, never the HTTP status
		require.Equal(t, http.StatusOK, rec.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, code, env.Code)
		assert.Equal(t, "nope", env.Msg)
	}
}
