package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CallerLimiter applies a token bucket per caller and evicts idle callers.
type CallerLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu     sync.Mutex
	byKey  map[string]*limiterEntry
	lastGC time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewCallerLimiter returns nil when rps or burst is not positive; a nil
// limiter allows everything.
func NewCallerLimiter(rps float64, burst int, idleTTL time.Duration) *CallerLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &CallerLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*limiterEntry),
	}
}

func (l *CallerLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now

	if now.Sub(l.lastGC) > l.idleTTL {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
		l.lastGC = now
	}

	return e.limiter.AllowN(now, 1)
}

// RateLimitMiddleware throttles by authenticated caller, falling back to the
// client IP for unauthenticated routes.
func RateLimitMiddleware(l *CallerLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := GetCallerID(c)
		if !ok {
			key = c.ClientIP()
		}
		if !l.Allow(key, time.Now()) {
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
