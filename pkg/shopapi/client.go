// Package shopapi is the HTTP client for the remote storefront REST API.
package shopapi

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

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

const (
	defaultTimeout             = 15 * time.Second
	errorBodyReadLimit   int64 = 4096
	downloadBodyMaxBytes int64 = 32 << 20
)

var errBaseURLRequired = errors.New("storefront api base url is required")

// Observer receives one call per completed upstream request.
type Observer interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
}

// Client wraps the storefront REST endpoints the gateway orchestrates.
type Client struct {
	httpClient *http.Client
	baseURL    string
	observer   Observer
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithObserver attaches a request observer such as the metrics recorder.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds a storefront API client rooted at baseURL (for example https://shop.example/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse storefront api base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

type bearerKey struct{}

// WithBearer returns a context whose upstream calls carry the given bearer token.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, strings.TrimSpace(token))
}

// BearerFromContext returns the token attached by WithBearer.
func BearerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
}

func (c *Client) doJSON(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", cl.endpoint))
	}
	return nil
}

func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "storefront api client not configured")
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s request", cl.endpoint))
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, cl.method, c.buildURL(cl.path, cl.query), body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", cl.endpoint))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := BearerFromContext(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	started := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(cl.endpoint, 0, started)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", cl.endpoint))
	}
	c.observe(cl.endpoint, resp.StatusCode, started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError(cl.endpoint, resp)
	}
	return resp, nil
}

func (c *Client) observe(endpoint string, status int, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(endpoint, status, c.now().Sub(started))
}

// StatusError carries the upstream status and message of a rejected call.
type StatusError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// UpstreamCall reports the failed endpoint and status for error dumps.
func (e *StatusError) UpstreamCall() (string, int) {
	return e.Endpoint, e.Status
}

func statusError(endpoint string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	message := upstreamMessage(raw)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	cause := &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Message: message}
	return pkgerrors.Wrap(pkgerrors.CodeForStatus(resp.StatusCode), cause, message).
		WithDetails(map[string]any{"upstreamStatus": resp.StatusCode})
}

// upstreamMessage extracts the human message the storefront API puts in error bodies.
func upstreamMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	switch v := payload.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

// UpstreamStatus returns the HTTP status of a rejected upstream call, or 0.
func UpstreamStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}
