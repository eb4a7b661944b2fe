package ulango

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// maxBufferedBody caps how much of a response body is buffered in memory.
const maxBufferedBody = 10 * 1024 * 1024

// Client orchestrates HTTP requests with response caching by key,
// cancellation of in-flight duplicates and bounded retry with backoff,
// layered around the standard net/http Client. It is safe for concurrent
// use.
type Client struct {
	httpClient *http.Client
	middleware []Middleware

	keyFunc        KeyFunc
	retryCondition RetryCondition

	defaultCache            bool
	defaultCancelDuplicated bool
	defaultRetry            int
	defaultRetryDelay       time.Duration
	defaultRetryDelayRise   bool

	pending *PendingRegistry
	store   Store

	breaker *gobreaker.CircuitBreaker[*http.Response]
	limiter *rate.Limiter

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		middleware:              []Middleware{},
		keyFunc:                 DefaultKeyFunc,
		retryCondition:          DefaultRetryCondition,
		defaultCache:            false,
		defaultCancelDuplicated: false,
		defaultRetry:            0,
		defaultRetryDelay:       200 * time.Millisecond,
		defaultRetryDelayRise:   true,
		pending:                 NewPendingRegistry(),
		store:                   NewMemoryStore(),
		debug:                   DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.debug != nil && client.debug.Enabled && client.logger == nil {
		client.logger = NewSimpleLogger()
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// DefaultRetryCondition re-issues on transport errors and 5xx responses.
func DefaultRetryCondition(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode >= 500
}

// Get performs an HTTP GET with context.
func (c *Client) Get(ctx context.Context, url string, opts ...CallOption) (*http.Response, error) {
	return c.Do(ctx, c.NewRequest(http.MethodGet, url, nil, opts...))
}

// Head performs an HTTP HEAD with context.
func (c *Client) Head(ctx context.Context, url string, opts ...CallOption) (*http.Response, error) {
	return c.Do(ctx, c.NewRequest(http.MethodHead, url, nil, opts...))
}

// Post performs an HTTP POST with the given content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte, opts ...CallOption) (*http.Response, error) {
	req := c.NewRequest(http.MethodPost, url, body, opts...)
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// Do executes a Request applying caching, duplicate supersession and retry.
// A cache hit resolves without touching the transport and does not refresh
// the stored entry.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	start := time.Now()
	endpoint := endpointFromURL(req.URL)
	key := c.deriveKey(req)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", req.Method, "url", req.URL, "key", key)
	}

	c.metrics.RecordRequestStart(req.Method, endpoint)
	defer c.metrics.RecordRequestEnd(req.Method, endpoint)

	if req.Cache {
		if entry, found := c.store.Get(key); found {
			if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
				c.logger.Debug("Cache hit", "requestID", requestID, "key", key)
			}
			c.metrics.RecordCacheHit(req.Method, endpoint)
			c.metrics.RecordRequest(req.Method, endpoint, entry.StatusCode, time.Since(start))
			return responseFromEntry(entry), nil
		}
		c.metrics.RecordCacheMiss(req.Method, endpoint)
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("Cache miss", "requestID", requestID, "key", key)
		}
	}

	resp, body, err := c.doAttempts(ctx, req, key, endpoint, requestID, start)

	duration := time.Since(start)
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.metrics.RecordRequest(req.Method, endpoint, statusCode, duration)

	if err != nil {
		return nil, err
	}

	if req.Cache && resp.StatusCode < 400 {
		c.store.Set(key, entryFromResponse(resp, body))
		if memStore, ok := c.store.(*MemoryStore); ok {
			c.metrics.RecordCacheSize("default", memStore.Len())
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("Response cached", "requestID", requestID, "key", key)
		}
	}

	return resp, nil
}

// doAttempts is the bounded retry loop. Each iteration runs the full
// per-attempt pipeline so supersession and cancellation reapply uniformly
// across re-issues.
func (c *Client) doAttempts(ctx context.Context, req *Request, key, endpoint, requestID string, start time.Time) (*http.Response, []byte, error) {
	for {
		if req.retryCount > 0 {
			c.metrics.RecordRetry(req.Method, endpoint, req.retryCount)
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", req.retryCount, "maxRetries", req.Retry, "key", key)
			}
		}

		resp, body, err := c.attempt(ctx, req, key, endpoint, requestID)

		// Errors the attempt already classified are terminal: a superseded
		// request must never be retried, and circuit/validation failures
		// would fail again identically.
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			c.metrics.RecordError(reqErr.Type, req.Method, endpoint)
			return nil, nil, err
		}

		if req.Retry <= 0 || !c.retryCondition(resp, err) {
			if err != nil {
				c.metrics.RecordError(ErrorTypeTransport, req.Method, endpoint)
				return nil, nil, c.newRequestError(ErrorTypeTransport, "transport request failed", err, req, key, requestID, start)
			}
			return resp, body, nil
		}

		if !consumeRetry(req) {
			c.metrics.RecordRetryExhausted(req.Method, endpoint)
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Warn("Retry budget exhausted", "requestID", requestID, "maxRetries", req.Retry, "key", key)
			}
			if err != nil {
				c.metrics.RecordError(ErrorTypeRetryExhausted, req.Method, endpoint)
				return nil, nil, c.newRequestError(ErrorTypeRetryExhausted, "retry budget exhausted", err, req, key, requestID, start)
			}
			// Status-code failures surface as the last response once the
			// budget is spent.
			return resp, body, nil
		}

		backoff := retryDelayFor(req)
		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", req.retryCount, "backoff", backoff, "key", key)
		}
		if waitErr := waitRetryDelay(ctx, backoff); waitErr != nil {
			c.metrics.RecordError(ErrorTypeTransport, req.Method, endpoint)
			return nil, nil, c.newRequestError(ErrorTypeTransport, "retry wait aborted", waitErr, req, key, requestID, start)
		}
	}
}

// attempt runs one pass of the interceptor pipeline: supersede/register,
// transport call, unregister. The response body is fully buffered so the
// attempt context can be released before the caller reads it.
func (c *Client) attempt(ctx context.Context, req *Request, key, endpoint, requestID string) (*http.Response, []byte, error) {
	var token *CancelToken
	if req.CancelDuplicated {
		token = newCancelToken()
		if c.pending.SupersedeAndRegister(key, "request superseded by duplicate: "+key, token) {
			c.metrics.RecordSupersede(req.Method, endpoint)
			if c.debug != nil && c.debug.Enabled && c.debug.LogDedup && c.logger != nil {
				c.logger.Debug("Superseded pending request", "requestID", requestID, "key", key)
			}
		}
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if token != nil {
		defer c.pending.Unregister(key, token)

		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-token.Done():
				cancel()
			case <-stop:
			}
		}()
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, nil, &RequestError{
			Type:      ErrorTypeValidation,
			Message:   "invalid request",
			Cause:     err,
			RequestID: requestID,
			Method:    req.Method,
			URL:       req.URL,
			Key:       key,
			Timestamp: time.Now(),
		}
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", UserAgent())
	}

	resp, err := c.execute(httpReq)
	if err != nil {
		if token != nil && token.IsCancelled() {
			if reason := token.Reason(); reason != nil {
				return nil, nil, reason
			}
			return nil, nil, &RequestError{Type: ErrorTypeCancel, Message: "request cancelled", Key: key}
		}
		return nil, nil, err
	}
	if resp == nil {
		return nil, nil, &RequestError{
			Type:      ErrorTypeTransport,
			Message:   "round tripper returned neither response nor error",
			RequestID: requestID,
			Method:    req.Method,
			URL:       req.URL,
			Key:       key,
			Timestamp: time.Now(),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedBody))
	_ = resp.Body.Close()
	if err != nil {
		if token != nil && token.IsCancelled() {
			if reason := token.Reason(); reason != nil {
				return nil, nil, reason
			}
		}
		return nil, nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return resp, body, nil
}

// execute applies the rate limiter and circuit breaker around the
// middleware chain.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	if c.breaker == nil {
		return c.roundTrip(req)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.roundTrip(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &RequestError{
			Type:      ErrorTypeTransport,
			Message:   "circuit breaker open",
			Cause:     err,
			Method:    req.Method,
			URL:       req.URL.String(),
			Timestamp: time.Now(),
		}
	}
	return resp, err
}

func (c *Client) newRequestError(errorType, message string, cause error, req *Request, key, requestID string, start time.Time) *RequestError {
	return &RequestError{
		Type:       errorType,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		Method:     req.Method,
		URL:        req.URL,
		Key:        key,
		Attempt:    req.retryCount,
		MaxRetries: req.Retry,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Pending exposes the pending-request registry, mainly for tests and
// introspection.
func (c *Client) Pending() *PendingRegistry {
	return c.pending
}

// Store exposes the response store, mainly for tests and cache management.
func (c *Client) Store() Store {
	return c.store
}

// endpointFromURL extracts a simplified host+path label for metrics.
func endpointFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
