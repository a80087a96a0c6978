// Package gateway is the single request dispatcher between the client and the
// SmartSQL REST backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
	"github.com/noah-isme/smartsql-client/pkg/middleware/requestid"
)

const maxResponseBytes = 4 << 20

// TokenSource yields the current bearer token, or "" when anonymous.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Observer records request metrics.
type Observer interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Metrics    Observer
	Logger     *zap.Logger
}

// Client dispatches authenticated JSON requests against the configured backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tokens     TokenSource
	metrics    Observer
	logger     *zap.Logger
}

// New validates options and builds a Client.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gateway: base URL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: hc,
		tokens:     opts.Tokens,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// BaseURL returns the resolved backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, query, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, nil, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, query, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, query, out)
}

// Do sends one request. Non-2xx responses become HTTP errors carrying the
// server message; 2xx responses with an error status become domain
// rejections. When out is non-nil the response body is decoded into it.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, query url.Values, out interface{}) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
		}
		payload = bytes.NewReader(buf)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.resolve(path, query), payload)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	reqID := requestid.New()
	c.setHeaders(req, body != nil, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, time.Since(start), reqID)
		return transportError(ctx, reqCtx, err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	c.observe(method, path, resp.StatusCode, time.Since(start), reqID)
	if readErr != nil {
		return transportError(ctx, reqCtx, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := appErrors.HTTPStatus(resp.StatusCode, serverMessage(raw))
		e.Fields = fieldErrors(raw)
		return e
	}
	if msg, rejected := rejection(raw); rejected {
		e := appErrors.Rejection(msg)
		e.Fields = fieldErrors(raw)
		return e
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return appErrors.Wrap(err, appErrors.CodeHTTP, resp.StatusCode, "unexpected response from server")
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if len(query) > 0 {
		if encoded := query.Encode(); encoded != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + encoded
		}
	}
	return target
}

func (c *Client) setHeaders(req *http.Request, hasBody bool, reqID string) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestid.HeaderKey, reqID)
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func (c *Client) observe(method, path string, status int, d time.Duration, reqID string) {
	tmpl := PathTemplate(path)
	if c.metrics != nil {
		c.metrics.ObserveHTTPRequest(method, tmpl, status, d)
	}
	c.logger.Debug("api_request",
		zap.String("method", method),
		zap.String("path", tmpl),
		zap.Int("status", status),
		zap.Duration("latency", d),
		zap.String("request_id", reqID),
	)
}

func transportError(parent, reqCtx context.Context, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return appErrors.Wrap(context.Canceled, appErrors.CodeNetwork, 0, "request cancelled")
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, appErrors.ErrNetwork.Message)
	}
}

// PathTemplate collapses numeric and uuid path segments so metrics labels
// stay bounded.
func PathTemplate(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if isIDSegment(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isIDSegment(seg string) bool {
	if seg == "" {
		return false
	}
	if strings.Trim(seg, "0123456789") == "" {
		return true
	}
	_, err := uuid.Parse(seg)
	return err == nil
}
