// Package api is the restaurant search client. It implements the
// collection DataProvider for restaurant queries over a Yelp-style
// business search endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/lunchbox/lunchbox-cli/internal/hostutil"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
	"github.com/lunchbox/lunchbox-cli/internal/version"
)

// Ensure Client implements the restaurant provider at compile time.
var _ restaurant.Provider = (*Client)(nil)

const (
	// DefaultBaseURL is the public search API.
	DefaultBaseURL = "https://api.yelp.com"

	// DefaultPageSize is the number of results requested per page.
	DefaultPageSize = 20

	// MaxPageSize is the largest page the API serves.
	MaxPageSize = 50

	// MaxResultWindow caps offset+limit; the API rejects anything past it.
	MaxResultWindow = 1000

	// DefaultMaxRetries is how many times a retryable failure is retried.
	DefaultMaxRetries = 3

	defaultBaseBackoff = 250 * time.Millisecond
	maxBackoff         = 8 * time.Second
	requestTimeout     = 15 * time.Second
	searchPath         = "/v3/businesses/search"
	businessPath       = "/v3/businesses/"
)

// Client talks to the search API.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	apiKey      string
	userAgent   string
	pageSize    int
	maxRetries  int
	baseBackoff time.Duration
	breaker     *gobreaker.CircuitBreaker
	limiter     Limiter
	hooks       Hooks
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPageSize sets the number of results per page, clamped to 1..MaxPageSize.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = min(n, MaxPageSize)
		}
	}
}

// WithMaxRetries sets how many times retryable failures are retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the first retry delay; later delays double.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) { c.baseBackoff = d }
}

// WithHooks registers request hooks.
func WithHooks(h Hooks) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Limiter throttles outgoing requests.
type Limiter interface {
	// Wait blocks until a request may go out.
	Wait(ctx context.Context) error
	// Block holds back all requests for d.
	Block(d time.Duration) error
}

// WithLimiter throttles every attempt through l.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(settings gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker(settings) }
}

// NewClient builds a Client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:     base,
		http:        &http.Client{Timeout: requestTimeout},
		apiKey:      apiKey,
		userAgent:   version.UserAgent(),
		pageSize:    DefaultPageSize,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		hooks:       NopHooks{},
		logger:      slog.New(slog.DiscardHandler),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker(DefaultBreakerSettings(c.logger))
	}
	return c, nil
}

// DefaultBreakerSettings trips after five consecutive failures and probes
// again after ten seconds. Client errors and cancellations do not count.
func DefaultBreakerSettings(logger *slog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "search",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *Error
			if errors.As(err, &apiErr) {
				return !apiErr.Retryable()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Debug("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	}
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int { return c.pageSize }

// Fetch returns the page of results for q starting at offset.
func (c *Client) Fetch(ctx context.Context, offset int, q restaurant.Query) (restaurant.Page, error) {
	if c == nil {
		return restaurant.Page{}, fmt.Errorf("client is nil")
	}
	if offset < 0 {
		offset = 0
	}
	limit := min(c.pageSize, MaxResultWindow-offset)
	if limit <= 0 {
		return restaurant.Page{TotalResults: MaxResultWindow, Offset: offset, PageSize: c.pageSize}, nil
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))
	if term := strings.TrimSpace(q.Term); term != "" {
		values.Set("term", term)
	}
	if q.Sort != "" {
		values.Set("sort_by", string(q.Sort))
	}
	if q.RadiusMeters > 0 {
		values.Set("radius", strconv.Itoa(q.RadiusMeters))
	}
	values.Set("offset", strconv.Itoa(offset))
	values.Set("limit", strconv.Itoa(limit))

	rel := &url.URL{Path: searchPath, RawQuery: values.Encode()}
	var payload searchResponse
	if err := c.get(ctx, rel, &payload); err != nil {
		return restaurant.Page{}, err
	}

	elems := make([]restaurant.Restaurant, 0, len(payload.Businesses))
	for _, b := range payload.Businesses {
		elems = append(elems, b.toRestaurant())
	}
	return restaurant.Page{
		TotalResults: min(payload.Total, MaxResultWindow),
		Offset:       offset,
		PageSize:     limit,
		Elements:     elems,
	}, nil
}

// Business fetches one restaurant by ID.
func (c *Client) Business(ctx context.Context, id string) (restaurant.Restaurant, error) {
	if strings.TrimSpace(id) == "" {
		return restaurant.Restaurant{}, fmt.Errorf("restaurant id required")
	}
	rel := &url.URL{Path: businessPath + id, RawPath: businessPath + url.PathEscape(id)}
	var payload business
	if err := c.get(ctx, rel, &payload); err != nil {
		return restaurant.Restaurant{}, err
	}
	return payload.toRestaurant(), nil
}

// get performs a GET with retries. Each attempt goes through the breaker.
func (c *Client) get(ctx context.Context, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	requestID := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		info := RequestInfo{Method: http.MethodGet, URL: reqURL.String(), Attempt: attempt, RequestID: requestID}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.attempt(ctx, info, dest)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *Error
		if c.limiter != nil && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			if berr := c.limiter.Block(apiErr.RetryAfter); berr != nil {
				c.logger.Debug("recording rate limit failed", "error", berr)
			}
		}

		if !retryable(err) || attempt > c.maxRetries || ctx.Err() != nil {
			break
		}
		delay := c.backoff(attempt, err)
		c.hooks.OnRetry(ctx, info, attempt, err)
		c.logger.Debug("retrying search request", "attempt", attempt, "delay", delay, "error", err, "request_id", requestID)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, info RequestInfo, dest any) (err error) {
	ctx = c.hooks.OnRequestStart(ctx, info)
	start := time.Now()
	status := 0
	defer func() {
		c.hooks.OnRequestEnd(ctx, info, RequestResult{
			StatusCode: status,
			Duration:   time.Since(start),
			Retryable:  retryable(err),
			Error:      err,
		})
	}()

	req, err := http.NewRequestWithContext(ctx, info.Method, info.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", info.RequestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		var body errorBody
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(data, &body) == nil {
				apiErr.Code = body.Error.Code
				apiErr.Description = body.Error.Description
			}
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// backoff returns the delay before retry number attempt: exponential with
// jitter, or the server's Retry-After when it asked for longer.
func (c *Client) backoff(attempt int, err error) time.Duration {
	d := c.baseBackoff << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	if d > 0 {
		d = d/2 + rand.N(d/2+1)
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > d {
		d = apiErr.RetryAfter
	}
	return d
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}

// transportError is a request that never got a response: connection
// refused or reset, DNS failure, client timeout.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "execute request: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	trimmed = hostutil.Normalize(trimmed)
	if err := hostutil.RequireSecureURL(trimmed); err != nil {
		return nil, err
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
