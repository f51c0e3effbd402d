// Package dispatch posts normalized email payloads to the ingestion API.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chiphi-ai/inbound/internal/ids"
	"github.com/chiphi-ai/inbound/internal/retry"
)

const (
	verificationPath  = "/inbound/verification"
	transactionalPath = "/inbound/email"

	// maxAttempts bounds the transactional dispatch sequence: one
	// initial attempt plus two retries, 1s and 2s apart.
	maxAttempts = 3

	// defaultAttemptTimeout caps each POST independently of the overall
	// invocation deadline, so one hung connection cannot eat every
	// retry's budget.
	defaultAttemptTimeout = 10 * time.Second
)

// PermanentError marks a 4xx response. Retrying a client error cannot
// succeed, so the retry loop aborts on the first one.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("ingestion api rejected request: status %d: %s", e.StatusCode, e.Body)
}

// HTTPDoer abstracts HTTP client operations for dependency inversion.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client dispatches payloads with shared-secret authentication.
type Client struct {
	baseURL        string
	secret         string
	httpClient     HTTPDoer
	policy         retry.Policy
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// NewClient creates a dispatch client with the standard retry policy.
func NewClient(baseURL, secret string, httpClient HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: httpClient,
		policy: retry.Policy{
			MaxAttempts: maxAttempts,
			Backoff:     retry.ExponentialBackoff(time.Second),
			Retryable: func(err error) bool {
				var perm *PermanentError
				return !errors.As(err, &perm)
			},
		},
		attemptTimeout: defaultAttemptTimeout,
		logger:         logger,
	}
}

// SendTransactional posts a transactional payload with retries. All
// attempts share one payload and one correlation id; only 5xx responses
// and network errors are retried. The last error is returned when the
// attempts exhaust or a 4xx aborts the sequence.
func (c *Client) SendTransactional(ctx context.Context, payload TransactionalPayload, correlationID ids.CorrelationID) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transactional payload: %w", err)
	}

	attempt := 0
	return c.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		err := c.post(ctx, transactionalPath, body, string(correlationID))
		if err != nil {
			c.logger.WarnContext(ctx, "Transactional dispatch attempt failed",
				slog.Int("attempt", attempt),
				slog.String("correlation_id", string(correlationID)),
				slog.String("message_id", payload.MessageID),
				slog.String("error", err.Error()),
			)
		}
		return err
	})
}

// SendVerification posts a verification-code payload. One attempt only:
// a lost code is recovered by the user re-triggering the forwarding
// flow, which is cheaper than retry latency here.
func (c *Client) SendVerification(ctx context.Context, payload VerificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal verification payload: %w", err)
	}
	return c.post(ctx, verificationPath, body, "")
}

func (c *Client) post(ctx context.Context, path string, body []byte, correlationID string) error {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shared-Secret", c.secret)
	if correlationID != "" {
		req.Header.Set("X-Correlation-Id", correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &PermanentError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, snippet)
}
