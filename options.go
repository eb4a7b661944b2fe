package ulango

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithMiddleware adds middleware to the transport chain.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithKeyFunc sets the default key derivation function. A per-request
// DuplicatedKey still takes precedence.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *Client) {
		c.keyFunc = fn
	}
}

// WithRetryCondition sets a custom retry condition.
func WithRetryCondition(fn RetryCondition) Option {
	return func(c *Client) {
		c.retryCondition = fn
	}
}

// WithStore sets a custom response store.
func WithStore(store Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithPendingRegistry sets the pending-request registry. Sharing one
// registry between clients makes them supersede each other's requests.
func WithPendingRegistry(registry *PendingRegistry) Option {
	return func(c *Client) {
		c.pending = registry
	}
}

// WithDefaultCache sets the client-wide default for the Cache call option.
func WithDefaultCache(enabled bool) Option {
	return func(c *Client) {
		c.defaultCache = enabled
	}
}

// WithCancelDuplicated sets the client-wide default for the
// CancelDuplicated call option.
func WithCancelDuplicated(enabled bool) Option {
	return func(c *Client) {
		c.defaultCancelDuplicated = enabled
	}
}

// WithDefaultRetry sets the client-wide default retry budget.
func WithDefaultRetry(n int) Option {
	return func(c *Client) {
		c.defaultRetry = n
	}
}

// WithDefaultRetryDelay sets the client-wide base backoff delay.
func WithDefaultRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.defaultRetryDelay = d
	}
}

// WithDefaultRetryDelayRise sets the client-wide default for linear delay
// scaling.
func WithDefaultRetryDelayRise(enabled bool) Option {
	return func(c *Client) {
		c.defaultRetryDelayRise = enabled
	}
}

// WithMetrics enables Prometheus metrics collection on the default
// registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a plain console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with the default configuration. When no
// logger is configured, a plain console logger is used.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithCircuitBreaker enables a circuit breaker around the transport.
func WithCircuitBreaker(config BreakerConfig) Option {
	return func(c *Client) {
		c.breaker = newBreaker(config)
	}
}

// WithRateLimiter throttles attempts to limit events per second with the
// given burst.
func WithRateLimiter(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateOrchestrationConfig()...)
	problems = append(problems, c.validateDebugConfig()...)
	problems = append(problems, c.validateTransportConfig()...)

	if len(problems) > 0 {
		return &RequestError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}

	return nil
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.defaultRetry < 0 {
		problems = append(problems, "default retry must be non-negative")
	}
	if c.defaultRetryDelay <= 0 {
		problems = append(problems, "default retry delay must be positive")
	}
	if c.defaultRetry > 100 {
		problems = append(problems, "default retry > 100 may cause excessive resource usage")
	}
	if c.defaultRetryDelay > 10*time.Minute {
		problems = append(problems, "default retry delay > 10m may cause very long backoffs")
	}
	if c.retryCondition == nil {
		problems = append(problems, "retry condition cannot be nil")
	}

	return problems
}

func (c *Client) validateOrchestrationConfig() []string {
	var problems []string

	if c.keyFunc == nil {
		problems = append(problems, "key function cannot be nil")
	}
	if c.pending == nil {
		problems = append(problems, "pending registry cannot be nil")
	}
	if c.store == nil {
		problems = append(problems, "response store cannot be nil")
	}

	return problems
}

func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen == nil {
		problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
	}

	return problems
}

func (c *Client) validateTransportConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	} else if c.httpClient.Timeout < 0 {
		problems = append(problems, "timeout must be non-negative")
	}
	for i, middleware := range c.middleware {
		if middleware == nil {
			problems = append(problems, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return problems
}
