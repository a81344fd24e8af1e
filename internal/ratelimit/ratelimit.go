// Package ratelimit provides a narrow per-key rate limiter interface.
// The limiter algorithm and key-extraction policy are out of scope per
// SPEC_FULL.md §1/§2 — this package supplies a minimal concrete default
// (per-IP token bucket) so internal/core has something to wire into the
// middleware chain.
//
// Grounded on original_source/src/routing/middleware/rate_limiter.rs's
// shape (per-key limiter consulted once per request, 500 on missing
// key); golang.org/x/time/rate substitutes for governor/tower-governor,
// which has no Go analog in the example pack.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/boundarygw/ic-gateway/internal/errorcause"
)

// KeyExtractor derives the rate-limit key (e.g. client IP) for a
// request. Returning ok=false makes Allow return an Other (500)
// ErrorCause.
type KeyExtractor func() (key string, ok bool)

// Limiter rate-limits per extracted key using a token bucket.
type Limiter struct {
	rps       rate.Limit
	burst     int
	extractor KeyExtractor

	mu       sync.Mutex
	perKey   map[string]*rate.Limiter
}

// New builds a Limiter allowing rps requests/sec with the given burst
// capacity, keyed by extractor.
func New(rps float64, burst int, extractor KeyExtractor) *Limiter {
	return &Limiter{rps: rate.Limit(rps), burst: burst, extractor: extractor, perKey: map[string]*rate.Limiter{}}
}

// Allow returns a RateLimited ErrorCause if the current request's key is
// over its budget, or an Other ErrorCause if no key could be extracted.
func (l *Limiter) Allow() *errorcause.ErrorCause {
	key, ok := l.extractor()
	if !ok {
		return errorcause.New(errorcause.Other, "rate limiter: missing connection key")
	}

	l.mu.Lock()
	lim, exists := l.perKey[key]
	if !exists {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.perKey[key] = lim
	}
	l.mu.Unlock()

	if !lim.Allow() {
		return errorcause.RateLimitedBy("ip")
	}
	return nil
}
