package ulango

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// MemoryStore is the default in-memory response store. It is unbounded and
// entries never expire; a later successful request under the same key
// overwrites the previous entry (last write wins).
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store: make(map[string]*Entry),
	}
}

// Get retrieves a cached entry.
func (s *MemoryStore) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.store[key]
	return entry, exists
}

// Set stores an entry unconditionally.
func (s *MemoryStore) Set(key string, entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[key] = entry
}

// Delete removes an entry.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.store, key)
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = make(map[string]*Entry)
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.store)
}

// responseFromEntry rebuilds an HTTP response from a cached entry. Each call
// yields a fresh readable body.
func responseFromEntry(entry *Entry) *http.Response {
	return &http.Response{
		Status:     http.StatusText(entry.StatusCode),
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(entry.Body)),
	}
}

// entryFromResponse snapshots a response into a cache entry. The response
// body must already be buffered by the attempt path.
func entryFromResponse(resp *http.Response, body []byte) *Entry {
	return &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now(),
	}
}
