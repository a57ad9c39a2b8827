// Package apiclient is the dashboard's typed client for the REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bizportal/internal/model"
	"bizportal/pkg/trace"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned for 401/403 responses after OnUnauthorized ran.
var ErrUnauthorized = errors.New("session expired")

// StatusError is a non-2xx response other than 401/403.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger

	// OnUnauthorized runs once per 401/403 response, before ErrUnauthorized is returned.
	OnUnauthorized func()

	probeAttempts int
	probeDelay    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithAuthProbe(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.probeAttempts = attempts
		c.probeDelay = delay
	}
}

func New(baseURL, token string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        logger,
		probeAttempts: 5,
		probeDelay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token the client sends.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName(), traceID)
	}
	return req, nil
}

// do sends req and returns the response when it is 2xx. Everything else is
// turned into ErrUnauthorized or a *StatusError and the body is closed.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Warn("API rejected credentials",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, ErrUnauthorized
	}

	var envelope struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Blob is a downloaded file. The caller closes Body.
type Blob struct {
	Body               io.ReadCloser
	ContentType        string
	ContentLength      int64
	ContentDisposition string
}

// Download fetches a binary resource.
func (c *Client) Download(ctx context.Context, path string) (*Blob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &Blob{
		Body:               resp.Body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentLength:      resp.ContentLength,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

// Upload posts a multipart body built by the caller.
func (c *Client) Upload(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ProbeAuth checks the session against /api/auth/me, retrying transport and
// 5xx failures a fixed number of times. Credential rejection stops immediately.
func (c *Client) ProbeAuth(ctx context.Context) (*model.User, error) {
	var lastErr error
	for attempt := 1; attempt <= c.probeAttempts; attempt++ {
		user, err := c.Me(ctx)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("Auth probe failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.probeAttempts),
			zap.Error(err),
		)

		if attempt == c.probeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.probeDelay):
		}
	}
	return nil, fmt.Errorf("auth probe gave up after %d attempts: %w", c.probeAttempts, lastErr)
}
