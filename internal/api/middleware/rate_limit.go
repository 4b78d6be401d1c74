package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idle:     5 * time.Minute,
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

// Sweep drops clients idle for longer than the idle window
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-rl.idle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// Handler limits requests by client IP. Idle clients are swept on every
// request once the sweep interval elapsed, so no background goroutine runs.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	var sweepMu sync.Mutex
	lastSweep := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sweepMu.Lock()
		if time.Since(lastSweep) > rl.idle {
			lastSweep = time.Now()
			sweepMu.Unlock()
			rl.Sweep()
		} else {
			sweepMu.Unlock()
		}

		if !rl.Allow(clientIP(r)) {
			utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit returns a per-IP rate limiting middleware
func RateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(requestsPerSecond, burst).Handler
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
