package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"igfollowers/pkg/collector"
	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/retry"
)

// WebhookEvent is the only event type posted
const WebhookEvent = "followers_scraped"

// WebhookPayload is the JSON body posted when a run collected followers
type WebhookPayload struct {
	Event          string    `json:"event"`
	UserID         string    `json:"user_id"`
	TotalFollowers int       `json:"total_followers"`
	State          string    `json:"state"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// WebhookNotifier posts a WebhookPayload at the end of every run that found
// at least one follower. Delivery failures are logged, never returned to the run.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	retry   *retry.Config
	logger  logger.Logger
	timeout time.Duration
}

// NewWebhookNotifier returns nil when url is empty
func NewWebhookNotifier(url string, timeout time.Duration, log logger.Logger) *WebhookNotifier {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.Logger = log

	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retry:   cfg,
		logger:  log.WithField("component", "webhook"),
		timeout: timeout,
	}
}

// SetBackoff replaces the delay between delivery attempts
func (w *WebhookNotifier) SetBackoff(b retry.BackoffStrategy) {
	w.retry.Backoff = b
}

func (w *WebhookNotifier) OnProgress(collector.Progress) {}

func (w *WebhookNotifier) OnBackoff(collector.Backoff) {}

// OnFinish delivers the payload, bounded by three attempts of the notifier timeout each
func (w *WebhookNotifier) OnFinish(res *collector.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.retry.MaxAttempts+1)*w.timeout)
	defer cancel()

	if err := w.Notify(ctx, res); err != nil {
		w.logger.WithError(err).Error("Webhook failed")
	}
}

// Notify posts the payload for res. Runs without followers are skipped.
func (w *WebhookNotifier) Notify(ctx context.Context, res *collector.Result) error {
	if len(res.Records) == 0 {
		return nil
	}

	scrapedAt := res.FinishedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}
	body, err := json.Marshal(WebhookPayload{
		Event:          WebhookEvent,
		UserID:         res.UserID,
		TotalFollowers: len(res.Records),
		State:          res.State.String(),
		ScrapedAt:      scrapedAt,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	err = retry.Do(ctx, func(ctx context.Context) error {
		return w.post(ctx, body)
	}, w.retry)
	if err != nil {
		return err
	}

	w.logger.InfoWithFields("Webhook sent", map[string]interface{}{
		"url":             w.url,
		"total_followers": len(res.Records),
	})
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errs.New(errs.ErrorTypeFatal, 0, "build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, 0, "post webhook: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.LogRequest(w.logger, http.MethodPost, w.url, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case errs.IsRetryableStatusCode(resp.StatusCode):
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "webhook returned %s", resp.Status)
	default:
		return errs.New(errs.ErrorTypeFatal, resp.StatusCode, "webhook returned %s", resp.Status)
	}
}
