package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strata-base/strata-go/pkg/log"
)

// DefaultRequestTimeout bounds a single Send call when the caller's context
// carries no deadline. Stream opens are exempt; they are long-lived.
const DefaultRequestTimeout = 30 * time.Second

// TokenSource provides the current bearer token for outbound requests.
// Implemented by auth.Store. An empty token means "no authentication".
type TokenSource interface {
	Token() string
}

// Config configures a transport Client.
type Config struct {
	// BaseURL is the server base URL, e.g. "https://api.example.com".
	BaseURL string

	// HTTPClient is the underlying HTTP client (default: http.DefaultClient).
	HTTPClient *http.Client

	// Tokens provides bearer tokens for outbound requests (optional).
	Tokens TokenSource

	// Logger receives request events (default: discard).
	Logger log.Logger

	// RequestTimeout bounds a single Send call (default: 30s).
	RequestTimeout time.Duration
}

// Client is the HTTP capability the rest of the SDK is built on.
// It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    TokenSource
	logger    log.Logger
	timeout   time.Duration
	sessionID string
}

// NewClient creates a new transport client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport: BaseURL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: base URL must be http or https, got %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		tokens:    cfg.Tokens,
		logger:    logger,
		timeout:   timeout,
		sessionID: uuid.NewString(),
	}, nil
}

// SessionID returns the identifier attached to this client's request events.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Logger returns the event logger this client reports to.
func (c *Client) Logger() log.Logger {
	return c.logger
}

// BuildURL resolves a path relative to the base URL.
func (c *Client) BuildURL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimPrefix(path, "/")
}

// Options describes a single request.
type Options struct {
	// Method is the HTTP method (default: GET).
	Method string

	// Query is appended to the request URL.
	Query url.Values

	// Body is JSON-encoded as the request body when non-nil.
	Body any

	// Header sets additional request headers.
	Header http.Header
}

// Response is a completed server response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Header is the response header.
	Header http.Header

	// Body is the raw response body.
	Body []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Send issues one request and waits for the response.
//
// A 2xx response is returned as *Response. A non-2xx response is returned
// as *APIError. Cancelling ctx surfaces as *AbortError so callers can
// distinguish supersession from genuine failure.
func (c *Client) Send(ctx context.Context, path string, opts Options) (*Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.requestURL(path, opts.Query), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if opts.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachToken(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &AbortError{Err: ctx.Err()}
		}
		c.logRequest(method, path, 0, time.Since(start))
		return nil, fmt.Errorf("transport: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &AbortError{Err: ctx.Err()}
		}
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	c.logRequest(method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(method, path, resp.StatusCode, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Stream opens the server-push endpoint at path and returns the raw body
// for frame parsing. The stream stays open until ctx is cancelled, the
// returned body is closed, or the server drops the connection.
func (c *Client) Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.attachToken(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &AbortError{Err: ctx.Err()}
		}
		return nil, fmt.Errorf("transport: open stream %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, decodeAPIError(http.MethodGet, path, resp.StatusCode, data)
	}

	return resp.Body, nil
}

// requestURL builds the full request URL with query parameters.
func (c *Client) requestURL(path string, query url.Values) string {
	u := c.BuildURL(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// attachToken adds the bearer token to the request, if one is available.
func (c *Client) attachToken(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// logRequest emits a request event.
func (c *Client) logRequest(method, path string, status int, duration time.Duration) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.sessionID,
		Direction:    log.DirectionOut,
		Category:     log.CategoryRequest,
		Request: &log.RequestEvent{
			Method:   method,
			Path:     path,
			Status:   status,
			Duration: duration,
		},
	})
}

// decodeAPIError builds an APIError from a non-2xx response body.
func decodeAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method: method,
		Path:   path,
		Status: status,
	}

	var payload struct {
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Data = payload.Data
	}

	return apiErr
}
