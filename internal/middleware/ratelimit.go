package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const bucketIdleTTL = 10 * time.Minute

// RateLimiter is a per-key token bucket refilled continuously over a
// one-minute window.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	limit      int
	windowSize time.Duration
	lastPrune  time.Time
	now        func() time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

func NewRateLimiter(limitPerMinute int) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		limit:      limitPerMinute,
		windowSize: time.Minute,
		now:        time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.limit,
			lastRefill: now,
		}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill)
	if elapsed >= rl.windowSize {
		b.tokens = rl.limit
		b.lastRefill = now
	} else {
		tokensToAdd := int(float64(rl.limit) * (float64(elapsed) / float64(rl.windowSize)))
		if tokensToAdd > 0 {
			b.tokens = min(b.tokens+tokensToAdd, rl.limit)
			b.lastRefill = now
		}
	}

	resetAt = b.lastRefill.Add(rl.windowSize)

	if b.tokens > 0 {
		b.tokens--
		return true, b.tokens, resetAt
	}
	return false, 0, resetAt
}

// prune drops idle buckets at most once per idle period.
func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) < bucketIdleTTL {
		return
	}
	rl.lastPrune = now
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > bucketIdleTTL {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit limits requests per API key; requests without a key share one
// bucket.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = "anonymous"
			}

			allowed, remaining, resetAt := limiter.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(resetAt.Sub(limiter.now()).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				WriteError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
