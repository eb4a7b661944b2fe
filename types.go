package ulango

import (
	"net/http"
	"time"
)

// KeyFunc derives the identity key for a request. Requests sharing a key are
// treated as duplicates of each other and address the same cache slot.
type KeyFunc func(*Request) string

// DelayFunc computes the backoff delay before a retry attempt. The attempt
// number is 1-indexed: the first re-issue sees attempt == 1.
type DelayFunc func(attempt int) time.Duration

// RetryCondition determines whether a completed attempt should be re-issued.
type RetryCondition func(resp *http.Response, err error) bool

// Middleware wraps the transport call for cross-cutting concerns.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Entry is a cached response snapshot.
type Entry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// Store holds cached responses. Entries live until overwritten or deleted;
// there is no TTL and no eviction.
type Store interface {
	Get(key string) (*Entry, bool)
	Set(key string, entry *Entry)
	Delete(key string)
	Clear()
}

// Option configures a Client at construction time.
type Option func(*Client)

// CallOption overrides client defaults for a single request.
type CallOption func(*Request)
