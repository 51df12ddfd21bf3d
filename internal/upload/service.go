package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/paired-app/paired/internal/logging"
)

// Service forwards uploaded files to the configured image bed and hands
// back the hosted URL. The image bed is an opaque collaborator; when it is
// unreachable or rejects the file, the caller gets the fallback URL so the
// surrounding flow never fails on account of an image.
type Service struct {
	endpoint    string
	token       string
	fallbackURL string
	client      *http.Client
	logger      *logging.Logger
}

func NewService(endpoint, token, fallbackURL string, logger *logging.Logger) *Service {
	return &Service{
		endpoint:    endpoint,
		token:       token,
		fallbackURL: fallbackURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type imageBedResponse struct {
	URL string `json:"url"`
}

// Upload sends the file to the image bed and returns its hosted URL, or
// the fallback URL when anything goes wrong.
func (s *Service) Upload(ctx context.Context, filename string, file io.Reader) string {
	if s.endpoint == "" {
		return s.fallbackURL
	}

	url, err := s.post(ctx, filename, file)
	if err != nil {
		s.logger.Warn("image upload failed, using fallback", "filename", filename, "error", err.Error())
		return s.fallbackURL
	}
	return url
}

func (s *Service) post(ctx context.Context, filename string, file io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image bed returned status %d", resp.StatusCode)
	}

	var decoded imageBedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode image bed response: %w", err)
	}
	if decoded.URL == "" {
		return "", fmt.Errorf("image bed response missing url")
	}

	return decoded.URL, nil
}
