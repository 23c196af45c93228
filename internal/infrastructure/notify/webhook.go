package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// defaultWebhookTimeout bounds how long a single notification POST may take
// so a slow or unreachable receiver can never stall a pipeline run.
const defaultWebhookTimeout = 10 * time.Second

// WebhookSink POSTs lifecycle events as JSON to a configured URL.
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookSink constructs a WebhookSink targeting url with the given
// extra headers (e.g. authentication).
func NewWebhookSink(url string, headers map[string]string) *WebhookSink {
	return &WebhookSink{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultWebhookTimeout},
	}
}

type webhookPayload struct {
	Type   string          `json:"type"`
	RunID  string          `json:"runId"`
	Status string          `json:"status"`
	Extra  json.RawMessage `json:"extra,omitempty"`
}

// Send POSTs event to the configured webhook URL.
func (s *WebhookSink) Send(ctx context.Context, event ports.LifecycleEvent) error {
	extra, err := json.Marshal(event.Extra)
	if err != nil {
		return fmt.Errorf("marshal webhook extra payload: %w", err)
	}

	body, err := json.Marshal(webhookPayload{
		Type:   event.Type,
		RunID:  event.State.RunID,
		Status: string(event.State.Status),
		Extra:  extra,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s responded with status %d", s.url, resp.StatusCode)
	}
	return nil
}

var _ Sink = (*WebhookSink)(nil)
