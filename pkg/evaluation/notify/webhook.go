// Package notify delivers run completion webhooks.
//
// A webhook is a single JSON POST carrying the run ID, status, results and
// inclusivity index, authenticated by a shared secret in the X-IDP-Webhook
// header. Delivery is attempted once with a bounded timeout; failures are
// reported to the caller and never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/inclusivity"
)

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-IDP-Webhook"

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

// ErrSkipped is returned when no delivery was attempted because the URL or
// the shared secret is empty.
var ErrSkipped = errors.New("webhook skipped")

// Payload is the JSON body of a webhook.
type Payload struct {
	ID      string              `json:"id"`
	Status  evaluation.Status   `json:"status"`
	Results *evaluation.Results `json:"results"`
	Index   *inclusivity.Index  `json:"index"`
}

// PayloadFor builds the webhook body of a run that finished with f.
func PayloadFor(runID string, f evaluation.Finalization) Payload {
	results, index := f.Results, f.Index
	return Payload{
		ID:      runID,
		Status:  evaluation.StatusDone,
		Results: &results,
		Index:   &index,
	}
}

// DeliveryError reports a failed delivery attempt.
type DeliveryError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Cause      error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook delivery failed [url=%s, status=%d]", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("webhook delivery failed [url=%s]: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Config configures the webhook notifier.
type Config struct {
	// Secret is sent in the X-IDP-Webhook header. Empty disables webhooks.
	Secret string

	// Timeout bounds one delivery attempt.
	// Default: 5 seconds
	Timeout time.Duration
}

// Webhook posts completion payloads.
type Webhook struct {
	secret string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg Config, logger *slog.Logger) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		secret: cfg.Secret,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "evaluation.notify"),
	}
}

// Notify sends payload to url. It returns ErrSkipped when url or the secret
// is empty, and a *DeliveryError for transport failures or non-2xx replies.
func (w *Webhook) Notify(ctx context.Context, url string, payload Payload) error {
	if url == "" || w.secret == "" {
		return ErrSkipped
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{URL: url, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, w.secret)

	resp, err := w.client.Do(req)
	if err != nil {
		return &DeliveryError{URL: url, Cause: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{URL: url, StatusCode: resp.StatusCode}
	}

	w.logger.Debug("webhook delivered", "run_id", payload.ID, "url", url, "status_code", resp.StatusCode)
	return nil
}
