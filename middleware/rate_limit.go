package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per key.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*keyLimiter
	every  time.Duration
	burst  int
	now    func() time.Time
}

// NewRateLimiter allows perMinute requests a minute per key, with bursts of up
// to burst requests.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limits: make(map[string]*keyLimiter),
		every:  time.Minute / time.Duration(perMinute),
		burst:  burst,
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if kl, ok := rl.limits[key]; ok {
		kl.lastSeen = now
		return kl.limiter
	}
	kl := &keyLimiter{limiter: rate.NewLimiter(rate.Every(rl.every), rl.burst), lastSeen: now}
	rl.limits[key] = kl
	return kl.limiter
}

// Prune forgets keys not seen for maxIdle and returns how many it dropped. A
// key is only dropped once its bucket has had time to refill, so pruning never
// grants extra requests.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	if refill := rl.every * time.Duration(rl.burst); maxIdle < refill {
		maxIdle = refill
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	dropped := 0
	for key, kl := range rl.limits {
		if kl.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// PerUser rejects requests of a user over the limit with 429. It must run
// after SyncUserMiddleware.
func (rl *RateLimiter) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if user, ok := UserFromContext(r.Context()); ok {
			key = user.AuthID
		}
		if !rl.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.every.Seconds())+1))
			writeJSONError(w, http.StatusTooManyRequests, "Too many analysis requests. Please wait a moment.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
