// Package api is a typed client for the TaskHub REST API (/api/v1/).
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
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/sadopc/taskhub/internal/logging"
)

// maxPages bounds how many "next" links a single list call follows.
const maxPages = 50

// TokenSource supplies the bearer credential for each request.
// *session.Holder satisfies it.
type TokenSource interface {
	Credential() (string, bool)
}

type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	log     *logrus.Logger
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithBreaker routes every request through cb. Transport failures and 5xx
// responses count against it; once open, calls fail with ErrUnavailable.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewBreaker builds the circuit breaker used in front of the API.
func NewBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "taskhub-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  logging.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, q url.Values) (*url.URL, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u := c.base.ResolveReference(rel)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// do sends a JSON request to path and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u, err := c.endpoint(path, q)
	if err != nil {
		return err
	}

	var body []byte
	contentType := ""
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		contentType = "application/json"
	}
	return c.send(ctx, method, u, body, contentType, out)
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, body []byte, contentType string, out any) error {
	requestID := uuid.NewString()
	fields := logrus.Fields{"method": method, "path": u.Path, "request_id": requestID}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.Credential(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.roundTrip(req)
	fields["elapsed"] = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.WithFields(fields).WithError(err).Warn("API_REQUEST_FAILED")
		}
		return err
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	c.log.WithFields(fields).Debug("API_REQUEST")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		c.log.WithFields(fields).Warn("API_UNAUTHORIZED")
		return fmt.Errorf("%s %s: %w", method, u.Path, ErrUnauthorized)
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		apiErr := newAPIError(resp.StatusCode, method, u.Path, data)
		c.log.WithFields(fields).WithError(apiErr).Warn("API_REJECTED")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, u.Path, err)
	}
	return nil
}

// roundTrip performs the HTTP exchange, through the breaker when one is set.
// Server errors are turned into *APIError inside the breaker so they count
// as failures; 4xx responses are returned to the caller untouched.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	exchange := func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
		}
		if resp.StatusCode >= 500 {
			defer resp.Body.Close()
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			return nil, newAPIError(resp.StatusCode, req.Method, req.URL.Path, data)
		}
		return resp, nil
	}

	if c.breaker == nil {
		res, err := exchange()
		if err != nil {
			return nil, err
		}
		return res.(*http.Response), nil
	}

	res, err := c.breaker.Execute(exchange)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}

// ============================================================
// Pagination
// ============================================================

// Page is the paginated envelope every list endpoint returns.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type pageEnvelope[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  *[]T    `json:"results"`
}

func (p *Page[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return fmt.Errorf("%w: got a bare array, expected a paginated envelope", ErrProtocol)
	}
	var env pageEnvelope[T]
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if env.Results == nil {
		return fmt.Errorf("%w: envelope has no results", ErrProtocol)
	}
	p.Count, p.Next, p.Previous, p.Results = env.Count, env.Next, env.Previous, *env.Results
	return nil
}

// listAll fetches path and follows "next" links until the list is exhausted.
func listAll[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	u, err := c.endpoint(path, q)
	if err != nil {
		return nil, err
	}

	items := []T{}
	for i := 0; i < maxPages; i++ {
		var page Page[T]
		if err := c.send(ctx, http.MethodGet, u, nil, "", &page); err != nil {
			return nil, err
		}
		items = append(items, page.Results...)

		if page.Next == nil || *page.Next == "" {
			return items, nil
		}
		next, err := u.Parse(*page.Next)
		if err != nil {
			return nil, fmt.Errorf("%w: bad next link %q", ErrProtocol, *page.Next)
		}
		u = next
	}
	c.log.WithField("path", path).Warn("API_PAGE_LIMIT")
	return items, nil
}
