package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPDispatcher delivers events to a single configured endpoint with
// exponential backoff between attempts.
type HTTPDispatcher struct {
	config WebhookConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPDispatcher creates a dispatcher for config. Retry settings
// that are unset get conservative defaults.
func NewHTTPDispatcher(config WebhookConfig, logger *slog.Logger) *HTTPDispatcher {
	if config.RetryConfig.MaxRetries < 0 {
		config.RetryConfig.MaxRetries = 0
	}
	if config.RetryConfig.InitialDelay <= 0 {
		config.RetryConfig.InitialDelay = time.Second
	}
	if config.RetryConfig.MaxDelay <= 0 {
		config.RetryConfig.MaxDelay = 30 * time.Second
	}
	if config.RetryConfig.BackoffFactor < 1 {
		config.RetryConfig.BackoffFactor = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDispatcher{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SendExtractionCompleted posts the event as JSON. Delivery is retried
// up to the configured number of times; the last error is returned
// when every attempt fails.
func (d *HTTPDispatcher) SendExtractionCompleted(ctx context.Context, event Event) error {
	if event.Type == "" {
		event.Type = EventTypeExtractionCompleted
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	attempts := d.config.RetryConfig.MaxRetries + 1
	delay := d.config.RetryConfig.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * d.config.RetryConfig.BackoffFactor)
			if delay > d.config.RetryConfig.MaxDelay {
				delay = d.config.RetryConfig.MaxDelay
			}
		}

		lastErr = d.post(ctx, payload)
		if lastErr == nil {
			d.logger.Debug("webhook delivered", "url", d.config.URL, "type", event.Type, "attempt", attempt)
			return nil
		}
		d.logger.Warn("webhook delivery failed", "url", d.config.URL, "attempt", attempt, "error", lastErr)
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", attempts, lastErr)
}

func (d *HTTPDispatcher) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range d.config.Headers {
		req.Header.Set(key, value)
	}
	if d.config.Secret != "" {
		req.Header.Set("X-Nodeharvest-Signature", signPayload(d.config.Secret, payload))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
