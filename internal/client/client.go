// Package client issues HTTP requests against the clinic backend and
// normalizes every outcome, including transport failures, into a Result.
// The client itself stays silent: it never logs and never panics, so it
// can be exercised in isolation. Reporting is layered on by the assertion
// runner.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout is the per-request timeout applied when none is configured.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps response body reads.
const maxResponseSize = 10 * 1024 * 1024 // 10 MB

// Options configures a Client.
type Options struct {
	// Timeout is the per-request timeout. Default: DefaultTimeout.
	Timeout time.Duration

	// TLSSkipVerify skips TLS certificate verification (for testing only).
	TLSSkipVerify bool

	// Headers are additional headers included in every request.
	Headers map[string]string

	// RequestsPerSecond throttles outgoing requests when > 0.
	// Zero disables pacing.
	RequestsPerSecond float64
}

// Client is the HTTP client for the API checker. All requests are issued
// exactly once: there are no retries, a single network failure surfaces as
// a Result with Err set.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	limiter    *rate.Limiter
}

// New creates a client for the given base URL. The URL must be absolute.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base URL must be absolute: %s", baseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.TLSSkipVerify,
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: make(map[string]string),
	}

	c.headers["Content-Type"] = "application/json"
	c.headers["Accept"] = "application/json"
	c.headers["User-Agent"] = "clinic-apicheck/1.0"

	for k, v := range opts.Headers {
		c.headers[k] = v
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return c, nil
}

// Request describes one HTTP call.
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

// BodyKind tags how a response body was interpreted.
type BodyKind int

const (
	// BodyNone indicates an empty response body.
	BodyNone BodyKind = iota
	// BodyJSON indicates the body parsed as JSON; see Result.JSON.
	BodyJSON
	// BodyText indicates the body did not parse as JSON; see Result.Text.
	BodyText
)

// String returns the kind name.
func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	default:
		return "none"
	}
}

// Result is the normalized outcome of one HTTP call. An empty success body,
// an unparseable body and a transport failure are all distinguishable:
// callers branch on Err and Kind instead of re-parsing raw responses.
type Result struct {
	StatusCode int
	Kind       BodyKind
	JSON       any
	Text       string
	Duration   time.Duration

	// Err is non-nil only when the request never produced a response
	// (DNS failure, connection refused, timeout).
	Err error
}

// TransportFailed reports whether the request failed to reach the server.
func (r Result) TransportFailed() bool {
	return r.Err != nil
}

// Send issues the request and normalizes the response. It never returns an
// error: transport failures are carried in Result.Err.
func (c *Client) Send(ctx context.Context, req Request) Result {
	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return Result{Err: fmt.Errorf("marshaling request body: %w", err)}
		}
		bodyReader = bytes.NewReader(raw)
	}

	return c.do(ctx, req.Method, req.Path, req.Query, req.Headers, bodyReader, "")
}

// SendMultipart issues a multipart form upload (used for roster file
// uploads). Extra form fields are written alongside the file part.
func (c *Client) SendMultipart(ctx context.Context, path, field, filename string, content []byte, extra map[string]string) Result {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return Result{Err: fmt.Errorf("creating form file: %w", err)}
	}
	if _, err := part.Write(content); err != nil {
		return Result{Err: fmt.Errorf("writing form file: %w", err)}
	}
	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			return Result{Err: fmt.Errorf("writing form field %s: %w", k, err)}
		}
	}
	if err := w.Close(); err != nil {
		return Result{Err: fmt.Errorf("closing multipart writer: %w", err)}
	}

	return c.do(ctx, http.MethodPost, path, nil, nil, &buf, w.FormDataContentType())
}

func (c *Client) do(ctx context.Context, method, path string, query, headers map[string]string, body io.Reader, contentType string) Result {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	u, err := c.buildURL(path, query)
	if err != nil {
		return Result{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return Result{Err: fmt.Errorf("creating request: %w", err)}
	}

	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Duration: elapsed, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return Result{
			StatusCode: httpResp.StatusCode,
			Duration:   elapsed,
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	return normalize(httpResp.StatusCode, raw, elapsed)
}

// normalize converts a raw response into the tagged Result variant.
func normalize(status int, raw []byte, elapsed time.Duration) Result {
	res := Result{StatusCode: status, Duration: elapsed}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		res.Kind = BodyNone
		return res
	}

	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err == nil {
		res.Kind = BodyJSON
		res.JSON = parsed
		return res
	}

	res.Kind = BodyText
	res.Text = string(raw)
	return res
}

func (c *Client) buildURL(path string, query map[string]string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
