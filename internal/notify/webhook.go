package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paired-app/paired/internal/logging"
)

// Webhook posts short event messages to a chat webhook. Strictly best
// effort: callers fire it from a goroutine and a failure only produces a
// log line, never an error on the triggering request.
type Webhook struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

func NewWebhook(url string, logger *logging.Logger) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

type eventPayload struct {
	Text string `json:"text"`
}

// Event sends one message. A webhook configured as empty disables
// notifications entirely.
func (w *Webhook) Event(ctx context.Context, text string) error {
	if w.url == "" {
		return nil
	}

	body, err := json.Marshal(eventPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.Debug("webhook event sent", "text", text)
	return nil
}
