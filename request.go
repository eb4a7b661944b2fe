package ulango

import (
	"net/http"
	"time"
)

// Request describes one logical request together with its orchestration
// settings. Build requests through Client.NewRequest so that client-level
// defaults are applied before call options.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Cache serves the response from the in-memory store when a prior
	// request under the same key stored one, and stores the response of a
	// successful call.
	Cache bool

	// CancelDuplicated cancels any pending request sharing this request's
	// key before issuing. The decision belongs to the new request; the prior
	// request's own setting is irrelevant.
	CancelDuplicated bool

	// DuplicatedKey overrides default key derivation for this request.
	DuplicatedKey KeyFunc

	// Retry is the maximum number of re-issues after a failed attempt.
	Retry int

	// RetryDelay is the base backoff delay. Ignored when RetryDelayFunc is
	// set.
	RetryDelay time.Duration

	// RetryDelayFunc computes the delay from the 1-indexed attempt number.
	RetryDelayFunc DelayFunc

	// RetryDelayRise scales RetryDelay linearly by the attempt number.
	RetryDelayRise bool

	// retryCount advances in place as the same logical request is re-issued.
	retryCount int
}

// RetryCount reports how many re-issues this request has consumed so far.
func (r *Request) RetryCount() int {
	return r.retryCount
}

// NewRequest builds a Request carrying the client's defaults, then applies
// the given call options.
func (c *Client) NewRequest(method, url string, body []byte, opts ...CallOption) *Request {
	if method == "" {
		method = http.MethodGet
	}
	req := &Request{
		Method:           method,
		URL:              url,
		Header:           make(http.Header),
		Body:             body,
		Cache:            c.defaultCache,
		CancelDuplicated: c.defaultCancelDuplicated,
		Retry:            c.defaultRetry,
		RetryDelay:       c.defaultRetryDelay,
		RetryDelayRise:   c.defaultRetryDelayRise,
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// Cache enables or disables response caching for this call.
func Cache(enabled bool) CallOption {
	return func(r *Request) {
		r.Cache = enabled
	}
}

// CancelDuplicated enables or disables supersession of pending duplicates
// for this call.
func CancelDuplicated(enabled bool) CallOption {
	return func(r *Request) {
		r.CancelDuplicated = enabled
	}
}

// DuplicatedKey sets a custom key derivation function for this call.
func DuplicatedKey(fn KeyFunc) CallOption {
	return func(r *Request) {
		r.DuplicatedKey = fn
	}
}

// Retry sets the maximum number of re-issues after a failed attempt.
func Retry(n int) CallOption {
	return func(r *Request) {
		r.Retry = n
	}
}

// RetryDelay sets the base backoff delay.
func RetryDelay(d time.Duration) CallOption {
	return func(r *Request) {
		r.RetryDelay = d
	}
}

// RetryDelayFunc sets a per-attempt delay function, overriding RetryDelay
// and RetryDelayRise.
func RetryDelayFunc(fn DelayFunc) CallOption {
	return func(r *Request) {
		r.RetryDelayFunc = fn
	}
}

// RetryDelayRise toggles linear scaling of the delay by attempt number.
func RetryDelayRise(enabled bool) CallOption {
	return func(r *Request) {
		r.RetryDelayRise = enabled
	}
}

// Header adds a header to the outgoing request.
func Header(key, value string) CallOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Add(key, value)
	}
}
