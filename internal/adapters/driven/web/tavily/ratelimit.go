package tavily

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultBackoff applies when a 429 carries no usable Retry-After.
const defaultBackoff = 30 * time.Second

// rateLimiter spaces out API calls with a token bucket and honours the
// backoff requested by 429 responses.
type rateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func newRateLimiter(requestsPerSecond float64, burst int) *rateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a request may be sent.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// backoff records a 429 response.
func (r *rateLimiter) backoff(h http.Header) {
	d := defaultBackoff
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		d = time.Duration(secs) * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(d)
}

// blockedUntil returns the end of the current backoff window.
func (r *rateLimiter) blockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}
