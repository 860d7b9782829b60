package printclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/version"
)

const (
	// DefaultTimeout is the per-attempt HTTP timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts is the number of attempts before giving up
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed wait between retryable attempts
	DefaultRetryDelay = 2 * time.Second

	// maxBodySize caps how much of a response body is read
	maxBodySize = 64 << 10
)

// Client talks to a print agent
type Client struct {
	// BaseURL is the agent's base URL (e.g., "http://192.168.1.20:8080")
	BaseURL string

	// DeviceKey is sent as a bearer token
	DeviceKey string

	// HTTPClient is the underlying HTTP client; its Timeout bounds each attempt
	HTTPClient *http.Client

	// MaxAttempts is the total number of attempts per submission
	MaxAttempts int

	// RetryDelay is the constant delay between retryable attempts
	RetryDelay time.Duration

	// Clock drives the retry delay
	Clock clockwork.Clock
}

// NewClient creates a client with the default timeout and retry policy
func NewClient(baseURL, deviceKey string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		DeviceKey:   deviceKey,
		HTTPClient:  &http.Client{Timeout: DefaultTimeout},
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		Clock:       clockwork.NewRealClock(),
	}
}

// SetTimeout sets the per-attempt HTTP timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures the attempt count and the delay between attempts
func (c *Client) SetRetry(maxAttempts int, retryDelay time.Duration) {
	c.MaxAttempts = maxAttempts
	c.RetryDelay = retryDelay
}

// Submit sends req to the agent, retrying retryable failures. It returns
// once the job is accepted, a terminal error is seen, the attempts are
// exhausted or ctx is cancelled during a retry wait.
func (c *Client) Submit(ctx context.Context, req Request) Outcome {
	requestID := uuid.NewString()
	start := c.Clock.Now()

	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr *Error
	attempts := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && c.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return c.finish(Rejected(lastErr, attempts), start)
			case <-c.Clock.After(c.RetryDelay):
			}
		}

		attempts = attempt
		attemptStart := c.Clock.Now()
		message, status, err := c.submitAttempt(ctx, requestID, req)
		logging.LogSubmissionAttempt(requestID, attempt, maxAttempts, status, c.Clock.Since(attemptStart), errOrNil(err))
		AttemptsTotal.WithLabelValues(resultLabel(err)).Inc()

		if err == nil {
			return c.finish(Accepted(message, attempts), start)
		}

		lastErr = err
		if !err.Retryable() {
			break
		}
	}

	return c.finish(Rejected(lastErr, attempts), start)
}

func (c *Client) finish(out Outcome, start time.Time) Outcome {
	SubmissionsTotal.WithLabelValues(resultLabel(out.Err)).Inc()
	SubmissionDuration.Observe(c.Clock.Since(start).Seconds())
	return out
}

// submitAttempt performs one POST /print exchange
func (c *Client) submitAttempt(ctx context.Context, requestID string, req Request) (string, int, *Error) {
	body, err := json.Marshal(req.payload())
	if err != nil {
		return "", 0, &Error{Kind: TransportFailure, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/print", bytes.NewReader(body))
	if err != nil {
		return "", 0, &Error{Kind: TransportFailure, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	c.setCommonHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", 0, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", resp.StatusCode, classifyStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", resp.StatusCode, classifyTransport(err)
	}

	message, err := parseAcceptance(data)
	if err != nil {
		return "", resp.StatusCode, &Error{Kind: MalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	return message, resp.StatusCode, nil
}

// parseAcceptance decodes a 200 body. The body must be a JSON object; a
// missing, empty or non-string message falls back to DefaultMessage.
func parseAcceptance(data []byte) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("response is not a JSON object")
	}

	raw, ok := doc["message"]
	if !ok {
		return DefaultMessage, nil
	}
	var message string
	if err := json.Unmarshal(raw, &message); err != nil || message == "" {
		return DefaultMessage, nil
	}
	return message, nil
}

// Health checks that the agent is reachable. Any status other than 200 is
// reported as an *Error.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return &Error{Kind: TransportFailure, Err: fmt.Errorf("failed to create health request: %w", err)}
	}
	c.setCommonHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode)
	}
	return nil
}

// Reachable reports whether the agent answered at all. Only transport
// failures are errors; an unhealthy or misconfigured agent still means the
// network is up.
func (c *Client) Reachable(ctx context.Context) error {
	err := c.Health(ctx)
	if kind, ok := KindOf(err); ok && kind != TransportFailure {
		return nil
	}
	return err
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Authorization", "Bearer "+c.DeviceKey)
}

// errOrNil keeps a nil *Error from becoming a non-nil error interface
func errOrNil(err *Error) error {
	if err == nil {
		return nil
	}
	return err
}
