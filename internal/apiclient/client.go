package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const defaultMaxBodyBytes = 16 << 20

// TokenSource yields the bearer token for protected calls; "" means none.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(context.Context)
	log            *slog.Logger
	maxBody        int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every round trip; 0 disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler is called once for every 401 answer to a protected call.
func WithUnauthorizedHandler(fn func(context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMaxBodyBytes caps how much of a response is read; larger bodies fail
// with ErrBodyTooLarge.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log:     logging.Discard(),
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetUnauthorizedHandler installs the 401 hook after construction; the auth
// slice needs the client before it can provide the hook.
func (c *Client) SetUnauthorizedHandler(fn func(context.Context)) {
	c.onUnauthorized = fn
}

type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Header    http.Header
	Protected bool
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do performs the request and decodes the payload into out (which may be nil).
// Payloads wrapped as {"message", "data"} are unwrapped. The server message is returned.
func (c *Client) Do(ctx context.Context, r Request, out any) (string, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return "", err
	}
	body, status, _, err := c.roundTrip(req)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status, Message: serverMessage(body)}
		if status == http.StatusUnauthorized && r.Protected && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return "", apiErr
	}
	return decode(body, out)
}

func decode(body []byte, out any) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}
	if trimmed[0] != '{' {
		if out == nil {
			return "", nil
		}
		if err := json.Unmarshal(trimmed, out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out == nil {
		return env.Message, nil
	}
	payload := []byte(env.Data)
	if len(payload) == 0 {
		payload = trimmed
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return env.Message, fmt.Errorf("decode response: %w", err)
	}
	return env.Message, nil
}

// Download fetches a binary resource without credentials.
func (c *Client) Download(ctx context.Context, path string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "*/*")
	body, status, contentType, err := c.roundTrip(req)
	if err != nil {
		return nil, "", err
	}
	if status < 200 || status > 299 {
		return nil, "", &APIError{Status: status, Message: serverMessage(body)}
	}
	return body, contentType, nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target := r.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Protected && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, int, string, error) {
	start := time.Now()
	l := c.log.With("method", req.Method, "url", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.Warn("api_request_failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, 0, "", fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		l.Warn("api_response_too_large", "status", resp.StatusCode, "limit", c.maxBody)
		return nil, resp.StatusCode, "", fmt.Errorf("%s %s: %w: over %d bytes", req.Method, req.URL.Path, ErrBodyTooLarge, c.maxBody)
	}
	l.Debug("api_request", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

func serverMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}
