package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Default timeout for webhook requests
	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3
)

// WebhookClient sends ops notifications to a Discord webhook
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// Notify sends a rollover alert. Its signature matches scheduler.NotifyFunc.
func (c *WebhookClient) Notify(ctx context.Context, message string) error {
	return c.sendPayload(ctx, NewRolloverAlertPayload(message))
}

func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	return postWithRetry(ctx, c.httpClient, c.webhookURL, "", payload)
}

// postWithRetry posts payload as JSON, waiting out 429 responses up to
// maxRetries times. auth is sent as the Authorization header when set.
func postWithRetry(ctx context.Context, client *http.Client, url, auth string, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Webhooks answer 204 No Content, channel messages 200 OK
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			return nil
		}

		// Rate limited - wait and retry
		if resp.StatusCode == http.StatusTooManyRequests {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp.Header.Get("Retry-After"))):
				continue
			}
		}

		// Other error
		return fmt.Errorf("Discord request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("Discord request failed after %d retries", maxRetries)
}

// retryAfter parses Discord's Retry-After header, which may be fractional
func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}
