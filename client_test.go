package ulango

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// failingTransport always errors and counts invocations.
type failingTransport struct {
	calls int32
	err   error
}

func (t *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&t.calls, 1)
	if t.err != nil {
		return nil, t.err
	}
	return nil, errors.New("connection refused")
}

func newFailingClient(transport *failingTransport, opts ...Option) *Client {
	opts = append([]Option{
		WithHTTPClient(&http.Client{Transport: transport}),
		WithDefaultRetryDelay(time.Millisecond),
	}, opts...)
	return New(opts...)
}

func TestCacheHitAvoidsTransport(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(200)
		_, _ = w.Write([]byte("cached payload"))
	}))
	defer server.Close()

	client := New()
	ctx := context.Background()

	first, err := client.Get(ctx, server.URL+"/a", Cache(true))
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	firstBody, _ := io.ReadAll(first.Body)

	second, err := client.Get(ctx, server.URL+"/a", Cache(true))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	secondBody, _ := io.ReadAll(second.Body)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("transport invoked %d times, want 1", got)
	}
	if string(firstBody) != string(secondBody) {
		t.Errorf("cached body %q != original %q", secondBody, firstBody)
	}
	if second.StatusCode != first.StatusCode {
		t.Errorf("cached status %d != original %d", second.StatusCode, first.StatusCode)
	}
}

func TestCacheDisabledRequestSkipsLookup(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New()
	ctx := context.Background()

	if _, err := client.Get(ctx, server.URL, Cache(true)); err != nil {
		t.Fatalf("priming request: %v", err)
	}
	// Without Cache the stored entry must be ignored.
	if _, err := client.Get(ctx, server.URL); err != nil {
		t.Fatalf("uncached request: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("transport invoked %d times, want 2", got)
	}
}

func TestCacheStoresOnlyOptedInRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New()
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("request: %v", err)
	}

	store := client.Store().(*MemoryStore)
	if store.Len() != 0 {
		t.Errorf("store has %d entries, uncached request must not store", store.Len())
	}
}

func TestCacheSkipsErrorStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer server.Close()

	client := New()
	resp, err := client.Get(context.Background(), server.URL, Cache(true))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if client.Store().(*MemoryStore).Len() != 0 {
		t.Error("error responses must not be cached")
	}
}

func TestDedupCancelsPendingRequest(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(WithCancelDuplicated(true))
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Get(ctx, server.URL+"/a")
		firstErr <- err
	}()

	// Let the first request register before the duplicate starts.
	time.Sleep(100 * time.Millisecond)

	secondDone := make(chan error, 1)
	go func() {
		_, err := client.Get(ctx, server.URL+"/a")
		secondDone <- err
	}()

	select {
	case err := <-firstErr:
		if !IsSuperseded(err) {
			t.Errorf("first request should fail with Cancel, got %v", err)
		}
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Type != ErrorTypeCancel {
			t.Errorf("first error should be a Cancel RequestError, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first request was not cancelled")
	}

	close(release)

	select {
	case err := <-secondDone:
		if err != nil {
			t.Errorf("second request should succeed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second request did not complete")
	}
}

func TestNoDedupWithoutFlag(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Get(ctx, server.URL+"/a")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("transport invoked %d times, want 2", got)
	}
}

func TestCancelledRequestIsNotRetried(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(200)
	}))
	defer server.Close()
	defer close(release)

	client := New(WithCancelDuplicated(true), WithDefaultRetry(3), WithDefaultRetryDelay(time.Millisecond))
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Get(ctx, server.URL+"/a")
		firstErr <- err
	}()
	time.Sleep(100 * time.Millisecond)

	go func() {
		_, _ = client.Get(ctx, server.URL+"/a")
	}()

	select {
	case err := <-firstErr:
		if !IsSuperseded(err) {
			t.Fatalf("want Cancel error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first request was not cancelled")
	}

	// The cancelled request must not have re-issued despite its retry
	// budget; only its own single attempt plus the duplicate's attempt may
	// reach the server.
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got > 2 {
		t.Errorf("transport invoked %d times, cancelled request retried", got)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	transport := &failingTransport{}
	client := newFailingClient(transport, WithDefaultRetry(2))

	_, err := client.Get(context.Background(), "http://example.invalid/a")
	if !IsRetryExhausted(err) {
		t.Fatalf("want RetryExhausted, got %v", err)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("want *RequestError, got %T", err)
	}
	if reqErr.Type != ErrorTypeRetryExhausted {
		t.Errorf("Type = %s", reqErr.Type)
	}
	if reqErr.Cause == nil {
		t.Error("exhaustion must carry the last underlying error")
	}

	if got := atomic.LoadInt32(&transport.calls); got != 3 {
		t.Errorf("transport invoked %d times, want 3 (1 + 2 retries)", got)
	}
}

func TestNoRetryBudgetTransportError(t *testing.T) {
	transport := &failingTransport{}
	client := newFailingClient(transport)

	_, err := client.Get(context.Background(), "http://example.invalid/a")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Type != ErrorTypeTransport {
		t.Fatalf("want Transport error, got %v", err)
	}
	if got := atomic.LoadInt32(&transport.calls); got != 1 {
		t.Errorf("transport invoked %d times, want 1", got)
	}
}

func TestRetryOnServerErrorStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New(WithDefaultRetry(2), WithDefaultRetryDelay(time.Millisecond))
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200 after retry", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("transport invoked %d times, want 2", got)
	}
}

func TestRetryExhaustedOnStatusReturnsLastResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(500)
	}))
	defer server.Close()

	client := New(WithDefaultRetry(1), WithDefaultRetryDelay(time.Millisecond))
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("status failures surface as responses, got error %v", err)
	}
	if resp.StatusCode != 500 {
		t.Errorf("status = %d, want last 500", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("transport invoked %d times, want 2", got)
	}
}

func TestPostSetsContentType(t *testing.T) {
	var contentType string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(201)
	}))
	defer server.Close()

	client := New()
	resp, err := client.Post(context.Background(), server.URL, "application/json", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if string(body) != `{"a":1}` {
		t.Errorf("body = %q", body)
	}
}

func TestHeadersForwarded(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New()
	if _, err := client.Get(context.Background(), server.URL, Header("Authorization", "Bearer tok")); err != nil {
		t.Fatalf("request: %v", err)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestInvalidConfigurationSurfacedOnDo(t *testing.T) {
	client := New(WithDefaultRetry(-1))

	if client.IsValid() {
		t.Fatal("negative retry should fail validation")
	}

	_, err := client.Get(context.Background(), "http://example.com")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Type != ErrorTypeValidation {
		t.Errorf("Do should surface the validation error, got %v", err)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer server.Close()

	var order []string
	var mu sync.Mutex
	mark := func(name string) Middleware {
		return func(req *http.Request, next RoundTripper) (*http.Response, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return next.RoundTrip(req)
		}
	}

	client := New(WithMiddleware(mark("outer"), mark("inner")))
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("request: %v", err)
	}

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestMiddlewareNilResponseRejected(t *testing.T) {
	swallow := func(req *http.Request, next RoundTripper) (*http.Response, error) {
		return nil, nil
	}

	client := New(WithMiddleware(swallow))
	_, err := client.Get(context.Background(), "http://example.com", Cache(true))

	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Type != ErrorTypeTransport {
		t.Errorf("nil response without error should yield a Transport error, got %v", err)
	}
}

func TestDefaultUserAgent(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New()
	ctx := context.Background()
	if _, err := client.Get(ctx, server.URL); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := client.Get(ctx, server.URL, Header("User-Agent", "custom/1.0")); err != nil {
		t.Fatalf("request: %v", err)
	}

	if len(agents) != 2 || agents[0] != UserAgent() || agents[1] != "custom/1.0" {
		t.Errorf("User-Agent headers = %v", agents)
	}
}

func TestCircuitBreakerFailsFast(t *testing.T) {
	transport := &failingTransport{}
	client := newFailingClient(transport, WithCircuitBreaker(BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.Get(ctx, "http://example.invalid/a"); err == nil {
			t.Fatalf("request %d should fail", i)
		}
	}
	callsBefore := atomic.LoadInt32(&transport.calls)

	_, err := client.Get(ctx, "http://example.invalid/a")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Type != ErrorTypeTransport {
		t.Fatalf("open circuit should yield a Transport error, got %v", err)
	}
	if atomic.LoadInt32(&transport.calls) != callsBefore {
		t.Error("open circuit must not reach the transport")
	}
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New(WithRateLimiter(20, 1)) // 20 rps, burst 1
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Get(ctx, server.URL); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests at 20rps finished in %v, limiter not applied", elapsed)
	}
}
