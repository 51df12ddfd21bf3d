package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paired-app/paired/internal/logging"
)

const fallback = "/static/default.png"

func TestUpload_ReturnsHostedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]string{"url": "https://img.example.com/cat.png"})
	}))
	defer server.Close()

	svc := NewService(server.URL, "secret-token", fallback, logging.NewLogger(true))

	url := svc.Upload(context.Background(), "cat.png", strings.NewReader("pngdata"))
	assert.Equal(t, "https://img.example.com/cat.png", url)
}

func TestUpload_NoTokenMeansNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://img.example.com/x.png"})
	}))
	defer server.Close()

	svc := NewService(server.URL, "", fallback, logging.NewLogger(true))

	url := svc.Upload(context.Background(), "x.png", strings.NewReader("data"))
	assert.Equal(t, "https://img.example.com/x.png", url)
}

func TestUpload_FallbackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewService(server.URL, "", fallback, logging.NewLogger(true))

	url := svc.Upload(context.Background(), "cat.png", strings.NewReader("pngdata"))
	assert.Equal(t, fallback, url)
}

func TestUpload_FallbackOnBadResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	svc := NewService(server.URL, "", fallback, logging.NewLogger(true))

	url := svc.Upload(context.Background(), "cat.png", strings.NewReader("pngdata"))
	assert.Equal(t, fallback, url)
}

func TestUpload_FallbackOnUnreachableEndpoint(t *testing.T) {
	svc := NewService("http://127.0.0.1:1", "", fallback, logging.NewLogger(true))

	url := svc.Upload(context.Background(), "cat.png", strings.NewReader("pngdata"))
	assert.Equal(t, fallback, url)
}

func TestUpload_NoEndpointConfigured(t *testing.T) {
	svc := NewService("", "", fallback, logging.NewLogger(true))

	url := svc.Upload(context.Background(), "cat.png", strings.NewReader("pngdata"))
	assert.Equal(t, fallback, url)
}
