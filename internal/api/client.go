// Package api is the HTTP client for the LazyDo backend. Every request carries the stored
// session token; a 401 response drops the stored token and identity.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/LAZYDOINDIA/LazyUI/internal/session"
	"github.com/LAZYDOINDIA/LazyUI/internal/storage"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
	maxErrorBody     = 512
)

// ErrUnauthorized matches any response with status 401.
var ErrUnauthorized = errors.New("api: unauthorized")

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client talks JSON to the backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	storage    storage.Storage
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// NewClient returns a client for baseURL (default DefaultBaseURL) whose requests time out
// after timeout (default DefaultTimeout). kv is where the session token is read from and
// cleared on 401.
func NewClient(baseURL string, timeout time.Duration, kv storage.Storage, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		storage: kv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request. body, when non-nil, is JSON-encoded; out, when non-nil, receives the
// decoded response. An empty response body leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(ctx, req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.clearSession(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: errorBody(raw)}
	}
	if len(raw) > maxResponseBytes {
		return fmt.Errorf("api: %s %s: response exceeds %d bytes", method, path, maxResponseBytes)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

// authorize adds the bearer token when one is stored. A failed read is logged and the request
// goes out without it.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.storage == nil {
		return
	}
	token, ok, err := c.storage.Get(ctx, session.TokenKey)
	if err != nil {
		log.Printf("api: read token: %v", err)
		return
	}
	if ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// clearSession removes the stored token and identity after a 401. The active-role key is left
// in place; a later Restore ignores it without the other two.
func (c *Client) clearSession(ctx context.Context) {
	if c.storage == nil {
		return
	}
	for _, key := range []string{session.TokenKey, session.UserKey} {
		if err := c.storage.Remove(ctx, key); err != nil {
			log.Printf("api: clear %s after 401: %v", key, err)
		}
	}
}

// errorBody keeps the first maxErrorBody bytes of a failed response for StatusError.
func errorBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > maxErrorBody {
		body = strings.ToValidUTF8(body[:maxErrorBody], "") + "..."
	}
	return body
}
