// Package httpx is the outbound HTTP client shared by actions, integrations,
// the evaluator and the vector database client.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Body encodings for Request.ContentType.
const (
	ContentJSON = "json"
	ContentForm = "data"
)

type (
	// Option configures a Client.
	Option func(*Client)

	// Client performs JSON-aware HTTP calls with a per-call timeout.
	Client struct {
		http    *http.Client
		timeout time.Duration
		retry   RetryConfig
		headers http.Header
	}

	// Request describes one outbound call.
	Request struct {
		Method  string
		URL     string
		Headers map[string]string
		Query   map[string]any
		// Body is JSON-encoded for ContentJSON and form-encoded for ContentForm.
		Body        any
		ContentType string
		BasicAuth   *BasicAuth
	}

	// BasicAuth carries HTTP basic credentials.
	BasicAuth struct {
		Username string
		Password string
	}

	// Response is a fully-read upstream response. Body holds the decoded JSON
	// value, or the raw text when the payload is not JSON.
	Response struct {
		StatusCode int
		Headers    map[string]string
		Body       any
		Raw        []byte
	}
)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRetry sets the retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(cl *Client) { cl.retry = cfg }
}

// WithHeader adds a static header to every request.
func WithHeader(name, value string) Option {
	return func(cl *Client) { cl.headers.Add(name, value) }
}

// New returns a Client with the given per-request timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cl := &Client{
		http:    &http.Client{},
		timeout: timeout,
		retry:   NoRetry,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cl)
		}
	}
	return cl
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string.
func (r *Response) Text() string {
	if s, ok := r.Body.(string); ok {
		return s
	}
	return string(r.Raw)
}

// Do sends req and reads the whole response. Transport errors are returned
// as-is; non-2xx responses are not errors.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var out *Response
	err := retry(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.once(ctx, req)
		if err != nil {
			return err
		}
		out = resp
		if IsRetryable(&StatusError{StatusCode: resp.StatusCode}) {
			return &StatusError{StatusCode: resp.StatusCode, Body: resp.Text()}
		}
		return nil
	})
	if err != nil && out == nil {
		return nil, err
	}
	return out, nil
}

// DoJSON sends req, fails on non-2xx and decodes the body into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, &StatusError{StatusCode: resp.StatusCode, Body: truncate(resp.Text(), 512)}
	}
	if out != nil && len(resp.Raw) > 0 {
		if err := json.Unmarshal(resp.Raw, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target, err := withQuery(req.URL, req.Query)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	if req.BasicAuth != nil {
		hreq.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)
	}

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()
	raw, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	headers := make(map[string]string, len(hresp.Header))
	for k := range hresp.Header {
		headers[k] = hresp.Header.Get(k)
	}
	return &Response{
		StatusCode: hresp.StatusCode,
		Headers:    headers,
		Body:       decodeBody(raw),
		Raw:        raw,
	}, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}
	switch req.ContentType {
	case ContentForm:
		form := url.Values{}
		fields, ok := req.Body.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("form body must be an object, got %T", req.Body)
		}
		for k, v := range fields {
			form.Set(k, Stringify(v))
		}
		if len(form) == 0 {
			return nil, "", nil
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

func withQuery(raw string, query map[string]any) (string, error) {
	if len(query) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, Stringify(v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeBody parses raw as JSON, falling back to the plain text.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(raw)
	}
	return v
}

// Stringify renders v for query strings, form bodies and URL templates.
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64, float32, int, int32, int64, bool:
		return fmt.Sprint(s)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// Marshal encodes v with the client's JSON codec.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data with the client's JSON codec.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
