package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	webhookTimeout    = 10 * time.Second
	webhookAttempts   = 3
	webhookBackoff    = 500 * time.Millisecond
	webhookMaxBackoff = 5 * time.Second
)

// WebhookProvider POSTs alerts as JSON to a user-configured endpoint.
type WebhookProvider struct {
	URL    string
	client *http.Client
}

func NewWebhookProvider(url string) *WebhookProvider {
	return &WebhookProvider{
		URL:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

func (p *WebhookProvider) Name() string {
	return "Webhook"
}

// Send posts the alert payload. Field names are stable; receiving systems
// depend on them. The subject detail key is named after the subject type
// (server, certificate or job).
func (p *WebhookProvider) Send(a Alert) error {
	if p.URL == "" {
		return nil
	}

	payload := map[string]interface{}{
		"type":      "alert",
		"alertType": a.Kind,
		"value":     a.Value,
		"threshold": a.Threshold,
		"message":   a.Message,
		"timestamp": a.Timestamp.UTC().Format(time.RFC3339),
	}
	payload[string(a.Subject.Type)] = map[string]interface{}{
		"id":   a.Subject.ID,
		"name": a.SubjectName,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Transient receiver hiccups get a short bounded retry; anything that
	// survives it is reported to the dispatcher as a channel failure.
	return retry.Do(func() error {
		resp, err := p.client.Post(p.URL, "application/json", bytes.NewReader(jsonBody))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	}, retry.Attempts(webhookAttempts), retry.Delay(webhookBackoff), retry.MaxDelay(webhookMaxBackoff))
}
