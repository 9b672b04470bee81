// Package slack delivers notification messages to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/shared/retry"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

const opWebhook = "slack webhook"

// httpClient abstracts HTTP operations
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier posts messages to a Slack incoming webhook. The webhook URL is a
// secret and never appears in logs or returned errors.
type Notifier struct {
	webhookURL     string
	client         httpClient
	attemptTimeout time.Duration
	deadline       time.Duration
	policy         retry.Policy
	logger         types.Logger
}

// Option configures Notifier
type Option func(*Notifier)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c httpClient) Option {
	return func(n *Notifier) {
		n.client = c
	}
}

// WithAttemptTimeout bounds a single POST.
func WithAttemptTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		n.attemptTimeout = d
	}
}

// WithDeliveryDeadline bounds all attempts of one delivery together.
func WithDeliveryDeadline(d time.Duration) Option {
	return func(n *Notifier) {
		n.deadline = d
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(n *Notifier) {
		n.policy = p
	}
}

// WithLogger sets the logger used for retry and outcome events.
func WithLogger(l types.Logger) Option {
	return func(n *Notifier) {
		n.logger = l
	}
}

// NewNotifier creates a new Slack notifier
func NewNotifier(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL:     webhookURL,
		client:         http.DefaultClient,
		attemptTimeout: 10 * time.Second,
		deadline:       30 * time.Second,
		policy:         retry.DefaultPolicy(3),
		logger:         types.NopLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// webhookPayload is the Slack webhook JSON structure
type webhookPayload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Fallback string   `json:"fallback"`
	Color    string   `json:"color"`
	Pretext  string   `json:"pretext"`
	Text     string   `json:"text"`
	Footer   string   `json:"footer,omitempty"`
	MrkdwnIn []string `json:"mrkdwn_in"`
}

func newPayload(msg entity.NotificationMessage) webhookPayload {
	return webhookPayload{
		Text: msg.Header,
		Attachments: []attachment{{
			Fallback: msg.Header,
			Color:    msg.Color,
			Pretext:  msg.Header,
			Text:     msg.Body,
			Footer:   msg.Footer,
			MrkdwnIn: []string{"pretext", "text"},
		}},
	}
}

// Deliver posts msg, retrying transient failures until the delivery deadline
// or ctx runs out. It never returns without an outcome.
func (n *Notifier) Deliver(ctx context.Context, msg entity.NotificationMessage) entity.DeliveryOutcome {
	if n.webhookURL == "" {
		err := types.NewConfigurationError(opWebhook, types.ErrMissingWebhookURL)
		return entity.Failed(types.KindConfiguration.String(), err)
	}

	body, err := json.Marshal(newPayload(msg))
	if err != nil {
		return entity.Failed(types.KindPermanent.String(), types.NewPermanentError(opWebhook, fmt.Errorf("marshal payload: %w", err)))
	}

	if n.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.deadline)
		defer cancel()
	}

	retries, err := retry.Do(ctx, n.policy, func(ctx context.Context) error {
		return n.post(ctx, body)
	}, func(attempt int, err error, wait time.Duration) {
		n.logger.Warn("webhook delivery failed, retrying",
			"report_id", msg.ReportID, "attempt", attempt, "wait", wait.String(), "error", err.Error())
	})

	if err == nil {
		return entity.DeliveredAfterRetry(retries)
	}

	n.logger.Debug("webhook delivery failed", "report_id", msg.ReportID, "error", err.Error())
	outcome := entity.Failed(types.KindOf(err).String(), err)
	outcome.Retries = retries
	return outcome
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	if n.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return types.NewConfigurationError(opWebhook, errors.New("create request: invalid webhook URL"))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return types.NewTransientError(opWebhook, fmt.Errorf("send request: %w", stripURL(err)))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return types.NewTransientError(opWebhook, fmt.Errorf("slack API error: status %d", code))
	default:
		return types.NewPermanentError(opWebhook, fmt.Errorf("slack API error: status %d", code))
	}
}

// stripURL drops the request URL that net/http adds to transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
