// Package transport is the HTTP layer every workflow talks through: one do
// method, envelope-aware decoding, typed errors, and bounded retry for
// idempotent reads only. Writes are at-most-once from the client's side.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"assetline/internal/session"
)

type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	Session     *session.Store
	Timeout     time.Duration
	ReadRetries int
	Logger      *log.Logger
}

// New creates a client with sane defaults. One transient retry on reads;
// zero on writes, always.
func New(baseURL string, sess *session.Store) *Client {
	return &Client{
		BaseURL:     baseURL,
		Session:     sess,
		Timeout:     10 * time.Second,
		ReadRetries: 1,
	}
}

// Get fetches path, retrying on transient network failure.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	var lastErr error
	attempts := c.ReadRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.logf("transport: retrying GET %s after %v", path, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
		lastErr = c.do(ctx, http.MethodGet, path, nil, out)
		var netErr *NetworkError
		if lastErr == nil || !errors.As(lastErr, &netErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if c.Session != nil {
		if token, ok := c.Session.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Op: method, URL: url, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method, URL: url, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return &session.AuthRequiredError{Reason: "backend rejected session"}
	}
	payload, _, err := DecodeBody(resp.StatusCode, data)
	if resp.StatusCode >= 300 {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err != nil {
		return err
	}
	if out != nil && payload != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &MalformedResponseError{Detail: err.Error()}
		}
	}
	return nil
}

func (c *Client) logf(format string, args ...any) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
