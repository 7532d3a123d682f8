package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// idleEviction is how long a client bucket may sit unused before the
// sweeper drops it.
const idleEviction = 3 * time.Minute

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket keyed by remote address. Chat and
// voice requests fan out to LLM and audio providers, so bursts are allowed
// but sustained load is capped.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens refilled per second
	burst   float64
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rps,
		burst:   float64(burst),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		rl.mu.Lock()
		b, ok := rl.buckets[r.RemoteAddr]
		if !ok {
			b = &bucket{tokens: rl.burst, lastSeen: now}
			rl.buckets[r.RemoteAddr] = b
		} else {
			b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
			if b.tokens > rl.burst {
				b.tokens = rl.burst
			}
			b.lastSeen = now
		}

		allowed := b.tokens >= 1
		if allowed {
			b.tokens--
		}
		rl.mu.Unlock()

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		for addr, b := range rl.buckets {
			if time.Since(b.lastSeen) > idleEviction {
				delete(rl.buckets, addr)
			}
		}
		rl.mu.Unlock()
	}
}
