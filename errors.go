package ulango

import (
	"errors"
	"fmt"
	"time"
)

// Error type labels carried by RequestError.Type.
const (
	// ErrorTypeCancel marks a request that was superseded by a newer
	// duplicate. Never retried.
	ErrorTypeCancel = "Cancel"

	// ErrorTypeTransport marks an underlying call failure with no retry
	// budget remaining.
	ErrorTypeTransport = "Transport"

	// ErrorTypeRetryExhausted marks a fully consumed retry budget; the last
	// underlying error is the cause.
	ErrorTypeRetryExhausted = "RetryExhausted"

	// ErrorTypeValidation marks invalid client configuration.
	ErrorTypeValidation = "Validation"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrSuperseded is returned when a request was cancelled because a newer
	// request with the same key started.
	ErrSuperseded = errors.New("ulango: request superseded")

	// ErrRetryExhausted is returned when the retry budget is fully consumed.
	ErrRetryExhausted = errors.New("ulango: retry budget exhausted")
)

// RequestError is the error type produced by the client. Type identifies the
// failure class, Cause carries the underlying error when one exists.
type RequestError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Key        string
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinel errors and other RequestErrors by type.
func (e *RequestError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrSuperseded:
		return e.Type == ErrorTypeCancel
	case ErrRetryExhausted:
		return e.Type == ErrorTypeRetryExhausted
	}
	if targetErr, ok := target.(*RequestError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsSuperseded reports whether err is a cancellation caused by a newer
// duplicate request.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}

// IsRetryExhausted reports whether err signals a consumed retry budget.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *RequestError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Key != "" {
		info += fmt.Sprintf("Key: %s\n", e.Key)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
