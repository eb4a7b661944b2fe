package ulango

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the optional circuit breaker. Zero values fall
// back to the defaults documented per field.
type BreakerConfig struct {
	// Name labels the breaker in errors and metrics. Default "ulango".
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default 5.
	FailureThreshold uint32

	// RecoveryTimeout is how long the circuit stays open before probing.
	// Default 60s.
	RecoveryTimeout time.Duration

	// MaxHalfOpenRequests limits concurrent probes while half-open.
	// Default 1.
	MaxHalfOpenRequests uint32
}

func newBreaker(config BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	if config.Name == "" {
		config.Name = "ulango"
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.MaxHalfOpenRequests == 0 {
		config.MaxHalfOpenRequests = 1
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxHalfOpenRequests,
		Timeout:     config.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
	})
}
