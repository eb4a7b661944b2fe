// Package ulango is a request-orchestration layer in front of net/http that
// adds three cross-cutting behaviors to every outgoing request:
//
//   - Response caching by logical key (in-memory, last write wins)
//   - Supersession of in-flight duplicates via cooperative cancellation
//   - Bounded retry with a constant or linearly rising backoff delay
//
// plus optional reliability extras: a circuit breaker, a rate limiter, a
// middleware chain, Prometheus metrics and lightweight structured debug
// logging.
//
// Requests are correlated through a derived key, by default the lowercased
// method concatenated with the URL. When a request opts into
// CancelDuplicated, any pending request under the same key is cancelled
// before the new one is issued; the cancelled caller receives a Cancel-typed
// RequestError and is never retried. Retries re-run the whole pipeline so
// supersession applies uniformly across attempts.
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via user supplied middleware & pluggable store / metrics
//
// Typical usage:
//
//	client := ulango.New(
//	    ulango.WithCancelDuplicated(true),
//	    ulango.WithDefaultRetry(2),
//	)
//	resp, err := client.Get(ctx, "https://api.example.com/data",
//	    ulango.Cache(true),
//	)
//
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger or NewZapLogger) and enable debug flags selectively for
// insight without noise.
package ulango
