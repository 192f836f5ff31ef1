// Package client provides the authenticated, resilient HTTP client for the
// plugin store API: token injection with transparent renewal, a single silent
// retry on 401 responses, and unbounded constant backoff on 429 responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"github.com/google/uuid"
	circuit "github.com/rubyist/circuitbreaker"
)

// DefaultBaseURL is the production store API endpoint.
const DefaultBaseURL = "https://api.shopware.com/"

const defaultRateLimitDelay = 5 * time.Second

// Client issues requests against the store API. Every call runs through the
// same pipeline: auth injection (unless the request is flagged no-auth), one
// silent re-login + replay on 401, and constant-delay retries on 429.
type Client struct {
	baseURL        string
	http           *http.Client
	auth           *Authenticator
	observer       Observer
	breaker        *circuit.Breaker
	userAgent      string
	rateLimitDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithObserver sets the lifecycle event observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimitDelay overrides the delay between retries of rate-limited
// requests.
func WithRateLimitDelay(d time.Duration) Option {
	return func(c *Client) {
		c.rateLimitDelay = d
	}
}

// WithCircuitBreaker wraps every physical request in a circuit breaker that
// trips after 5 consecutive transport failures and resets with exponential
// backoff.
func WithCircuitBreaker() Option {
	return func(c *Client) {
		expBackoff := backoff.NewExponentialBackOff()
		expBackoff.InitialInterval = 30 * time.Second
		expBackoff.MaxInterval = 5 * time.Minute
		expBackoff.Multiplier = 2.0
		expBackoff.Reset()

		c.breaker = circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		})
	}
}

// New creates a client for the store API at baseURL. If baseURL is empty,
// DefaultBaseURL is used.
func New(baseURL, username, password string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		http:           newHTTPClient(),
		userAgent:      "storecmd/1.0",
		rateLimitDelay: defaultRateLimitDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.auth = &Authenticator{
		username: username,
		password: password,
		session:  &Session{},
		client:   c,
	}
	return c
}

// Auth returns the client's session authenticator.
func (c *Client) Auth() *Authenticator {
	return c.auth
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, &request{method: http.MethodGet, path: path, query: query}, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
// A nil body sends an empty request.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, &request{method: http.MethodPost, path: path, body: jsonBody(body)}, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, &request{method: http.MethodPut, path: path, body: jsonBody(body)}, out)
}

// Upload issues a multipart POST carrying contents as the "file" form field.
func (c *Client) Upload(ctx context.Context, path, filename string, contents []byte, out any) error {
	return c.do(ctx, &request{method: http.MethodPost, path: path, body: multipartBody(filename, contents)}, out)
}

// request is one logical API call. The body factory is invoked once per
// physical attempt so that 401 and 429 retries can replay the payload.
type request struct {
	method string
	path   string
	query  url.Values
	body   bodyFunc
	noAuth bool
}

type bodyFunc func() (io.Reader, string, error)

func jsonBody(v any) bodyFunc {
	if v == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	return func() (io.Reader, string, error) {
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return bytes.NewReader(payload), "application/json", nil
	}
}

func multipartBody(filename string, contents []byte) bodyFunc {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err == nil {
		_, err = part.Write(contents)
	}
	if err == nil {
		err = w.Close()
	}
	payload := buf.Bytes()
	contentType := w.FormDataContentType()
	return func() (io.Reader, string, error) {
		if err != nil {
			return nil, "", fmt.Errorf("encoding multipart body: %w", err)
		}
		return bytes.NewReader(payload), contentType, nil
	}
}

type response struct {
	status int
	url    string
	body   []byte
}

// do runs the request through the retry pipeline. The unauthorized path
// replays the request at most once; the rate-limit path retries for as long
// as the server keeps answering 429, pausing between attempts.
func (c *Client) do(ctx context.Context, r *request, out any) error {
	retriedAuth := false
	wait := backoff.WithContext(backoff.NewConstantBackOff(c.rateLimitDelay), ctx)

	for {
		resp, err := c.send(ctx, r)
		if err != nil {
			return err
		}

		switch {
		case resp.status == http.StatusUnauthorized && !r.noAuth:
			if retriedAuth {
				return &AuthError{Message: "request rejected again after renewing the access token"}
			}
			retriedAuth = true
			c.auth.Invalidate()
			c.observer.Emit(EventInfo, "Renewing auth data...")
			continue

		case resp.status == http.StatusTooManyRequests:
			d := wait.NextBackOff()
			if d == backoff.Stop {
				return &RateLimitError{RetryAfter: int(c.rateLimitDelay / time.Second)}
			}
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue

		case resp.status >= 400:
			return &HTTPError{StatusCode: resp.status, URL: resp.url, Body: string(resp.body)}
		}

		if out != nil && len(resp.body) > 0 {
			if err := json.Unmarshal(resp.body, out); err != nil {
				return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
			}
		}
		return nil
	}
}

// send performs one physical request, including auth injection.
func (c *Client) send(ctx context.Context, r *request) (*response, error) {
	reqURL := c.baseURL + "/" + strings.TrimPrefix(r.path, "/")
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	if r.body != nil {
		var err error
		body, contentType, err = r.body()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if !r.noAuth {
		token, err := c.auth.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Shopware-Token", token)
	}

	c.observer.Emit(EventRequestStarted, r.method+" "+r.path)
	resp, err := c.roundTrip(req)
	c.observer.Emit(EventRequestEnded, r.method+" "+r.path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, reqURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", r.method, reqURL, err)
	}

	return &response{status: resp.StatusCode, url: reqURL, body: payload}, nil
}

func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}
	if !c.breaker.Ready() {
		return nil, ErrCircuitOpen
	}
	var resp *http.Response
	err := c.breaker.Call(func() error {
		var doErr error
		resp, doErr = c.http.Do(req)
		return doErr
	}, 0)
	return resp, err
}
