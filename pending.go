package ulango

import (
	"sync"
)

// CancelToken is the cancellation handle registered for an in-flight
// request. Triggering it rejects that request; the transport observes the
// cancellation cooperatively through the attempt's context.
type CancelToken struct {
	mu        sync.Mutex
	done      chan struct{}
	reason    error
	cancelled bool
}

func newCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Trigger cancels the request the token was issued for. Only the first call
// has effect; the reason is what the cancelled request's caller receives.
func (t *CancelToken) Trigger(reason error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.reason = reason
	close(t.done)
}

// IsCancelled reports whether the token has been triggered.
func (t *CancelToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Reason returns the error the token was triggered with, or nil.
func (t *CancelToken) Reason() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Done returns a channel closed when the token is triggered.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// PendingRegistry tracks at most one cancellation token per request key.
// It is safe for concurrent use.
type PendingRegistry struct {
	mu      sync.Mutex
	entries map[string]*CancelToken
}

// NewPendingRegistry returns an empty registry.
func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{
		entries: make(map[string]*CancelToken),
	}
}

// Supersede removes the token registered under key, if any, and triggers it
// with a Cancel error carrying message. Reports whether a pending request
// was cancelled.
func (p *PendingRegistry) Supersede(key, message string) bool {
	p.mu.Lock()
	token, exists := p.entries[key]
	if exists {
		delete(p.entries, key)
	}
	p.mu.Unlock()

	if !exists {
		return false
	}
	token.Trigger(&RequestError{
		Type:    ErrorTypeCancel,
		Message: message,
		Key:     key,
	})
	return true
}

// SupersedeAndRegister installs token under key and, in the same critical
// section, removes any token previously registered there. The displaced
// token is triggered with a Cancel error carrying message. Two concurrent
// callers therefore always observe one winner holding the key and the other
// cancelled; no request is ever left in flight untracked. Reports whether a
// pending request was cancelled.
func (p *PendingRegistry) SupersedeAndRegister(key, message string, token *CancelToken) bool {
	p.mu.Lock()
	previous, existed := p.entries[key]
	p.entries[key] = token
	p.mu.Unlock()

	if !existed {
		return false
	}
	previous.Trigger(&RequestError{
		Type:    ErrorTypeCancel,
		Message: message,
		Key:     key,
	})
	return true
}

// Register stores token under key only when no entry currently exists.
// Reports whether the token was stored.
func (p *PendingRegistry) Register(key string, token *CancelToken) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[key]; exists {
		return false
	}
	p.entries[key] = token
	return true
}

// Unregister removes the entry for key only when it still holds token. A
// superseded request's cleanup must not evict its successor's registration.
func (p *PendingRegistry) Unregister(key string, token *CancelToken) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, exists := p.entries[key]; exists && current == token {
		delete(p.entries, key)
	}
}

// Len returns the number of pending entries.
func (p *PendingRegistry) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
