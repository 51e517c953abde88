package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/tidwall/gjson"
)

const (
	// DefaultEndpoint is the Railway public GraphQL API.
	DefaultEndpoint = "https://backboard.railway.app/graphql/v2"

	// MaxAttempts bounds how many times a single query is sent.
	MaxAttempts = 3

	// DefaultTimeout is the per-attempt HTTP timeout.
	DefaultTimeout = 15 * time.Second

	maxResponseBodySize = 4 << 20 // 4MB
	userAgent           = "railpulse"
)

// AttemptRecorder receives one observation per HTTP attempt.
// statusCode is zero when the request failed before a response arrived.
type AttemptRecorder interface {
	RecordAttempt(statusCode int, latency time.Duration)
}

// Request is the JSON body POSTed to the GraphQL endpoint.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client executes queries against the Railway GraphQL endpoint.
//
// Client is safe for concurrent use; the only shared mutable state is the
// [ratelimit.Budget], which serializes its own access.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	endpoint   string
	budget     *ratelimit.Budget
	logger     *slog.Logger
	recorder   AttemptRecorder
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout of the default *http.Client.
// It has no effect when [WithHTTPClient] supplies a client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for retry and wait events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder registers an [AttemptRecorder] for per-attempt metrics.
func WithRecorder(r AttemptRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient creates a [Client] for endpoint that reports into budget.
// An empty endpoint means [DefaultEndpoint].
func NewClient(endpoint string, budget *ratelimit.Budget, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if budget == nil {
		budget = ratelimit.NewBudget()
	}

	c := &Client{
		timeout:  DefaultTimeout,
		endpoint: endpoint,
		budget:   budget,
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeout)
	}
	return c
}

// Budget returns the rate-limit budget this client reports into.
func (c *Client) Budget() *ratelimit.Budget {
	return c.budget
}

// Endpoint returns the GraphQL URL this client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute sends req authenticated with token and decodes the response data
// into out. out may be nil to discard the data, or a *json.RawMessage to keep
// it undecoded.
func (c *Client) Execute(ctx context.Context, req Request, token string, out any) error {
	if token == "" {
		return ErrNoToken
	}

	// proactive wait: budget observation from earlier responses decides this
	if wait := c.budget.WaitDuration(); wait > 0 {
		c.logger.Info("rate limit exhausted, waiting for reset", "wait", wait.String())
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		statusCode, header, respBody, err := c.send(ctx, body, token)
		if err != nil {
			return err
		}

		switch statusCode {
		case http.StatusOK:
			return decodeEnvelope(respBody, out)

		case http.StatusTooManyRequests:
			// no point waiting after the final attempt
			if attempt < MaxAttempts-1 {
				delay := retryDelay(header, attempt)
				c.logger.Warn("rate limited, backing off",
					"attempt", attempt+1,
					"delay", delay.String(),
				)
				if err := c.sleep(ctx, delay); err != nil {
					return err
				}
			}

		default:
			return &HTTPError{StatusCode: statusCode, Message: errorMessage(respBody)}
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrRateLimited, MaxAttempts)
}

// send performs one HTTP attempt. The budget is updated from the response
// headers before the caller inspects the status code.
func (c *Client) send(ctx context.Context, body []byte, token string) (int, http.Header, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(0, time.Since(start))
		return 0, nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.budget.Observe(resp.Header)
	c.record(resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("graphql response",
		"status_code", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp.StatusCode, resp.Header, respBody, nil
}

func (c *Client) record(statusCode int, latency time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordAttempt(statusCode, latency)
	}
}

func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(env.Errors) > 0 {
		messages := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			messages = append(messages, e.Message)
		}
		return &GraphQLError{Messages: messages}
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrNoData
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// retryDelay honours Retry-After (seconds, possibly fractional) and otherwise
// waits (attempt+1)*2 seconds.
func retryDelay(h http.Header, attempt int) time.Duration {
	if raw := strings.TrimSpace(h.Get("Retry-After")); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs >= 0 && secs < 1e9 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return time.Duration(attempt+1) * 2 * time.Second
}

// errorMessage pulls a human-readable message out of an error body.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() {
		return msg.String()
	}
	return gjson.GetBytes(body, "message").String()
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
