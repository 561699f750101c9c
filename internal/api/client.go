package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saravenpi/slash/internal/logger"
)

// ErrNotAuthenticated is returned without touching the network when an
// authenticated endpoint is called with no token.
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource supplies the current bearer token. The session store
// implements it.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, mostly for the CLI and tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks to the messaging service over HTTP/JSON. It keeps no state
// besides its configuration; callers own everything derived from responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

// WithHTTPClient swaps the transport. No timeout is set by default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		tokens:     StaticToken(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetTokenSource is used when the session store is built after the client.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues one request. body is JSON-encoded when non-nil. The response
// body is returned for 2xx statuses; anything else becomes an *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, authed bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	if authed {
		token := c.tokens.Token()
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("request_failed", "request_id", reqID, "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug("request", "request_id", reqID, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, data)
	}
	return data, nil
}
