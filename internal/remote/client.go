// Package remote talks to the finance service over HTTP/JSON.
package remote

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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/session"
)

// Client is a finance service client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource selects how bearer tokens are obtained.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentRemote) }
}

// NewHTTPClient returns an HTTP client whose transport is traced with OpenTelemetry.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(15 * time.Second),
		tokens:  SessionTokens{},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send issues method on path with in encoded as the JSON body (nil for none)
// and returns the raw response body. An empty or null body yields nil.
// Any failure to reach the service or any non-2xx answer is a *TransportError.
func (c *Client) Send(ctx context.Context, sess session.Session, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(log.RequestIDHeader, requestID)

	token, err := c.tokens.Token(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain bearer token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Finance service unreachable",
			log.FieldMethod, method, log.FieldPath, path, log.FieldRequestID, requestID, log.FieldError, err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.DebugContext(ctx, "Finance service call",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldRequestID, requestID,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.tokens.(interface{ Invalidate(userID string) }); ok {
				inv.Invalidate(sess.UserID)
			}
		}
		return nil, &TransportError{Method: method, Path: path, Status: resp.StatusCode, Detail: errorDetail(raw)}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	return raw, nil
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, sess session.Session, path string, out any) error {
	raw, err := c.Send(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Method: http.MethodGet, Path: path, Status: http.StatusOK, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// Dashboard fetches the server-computed summary for the session's user.
func (c *Client) Dashboard(ctx context.Context, sess session.Session) (core.DashboardSummary, error) {
	var summary core.DashboardSummary
	if err := c.Get(ctx, sess, DashboardPath(sess.UserID), &summary); err != nil {
		return core.DashboardSummary{}, err
	}
	return summary, nil
}

// errorDetail extracts the service's {"detail": ...} message.
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(raw[:min(len(raw), 200)]))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}
