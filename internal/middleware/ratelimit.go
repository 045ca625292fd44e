package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// Idle clients are dropped after this much silence.
	visitorTTL    = 5 * time.Minute
	sweepInterval = time.Minute
)

// RateLimiter throttles requests per client IP. Each visitor gets its own
// token bucket sized from the per-minute budget; the auth and publish routes
// share one budget since both ultimately fan out to provider APIs.
type RateLimiter struct {
	perSecond rate.Limit
	burst     int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter sizes a limiter from a requests-per-minute budget. A
// non-positive budget returns nil, which Handler treats as disabled.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		perSecond: rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

// Handler returns the gin middleware. A nil receiver is a pass-through.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !r.admit(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"error_description": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

// admit takes one token from the client's bucket, creating the bucket on
// first sight and sweeping idle visitors at most once per sweepInterval.
func (r *RateLimiter) admit(ip string) bool {
	now := time.Now()

	r.mu.Lock()
	v, ok := r.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(r.perSecond, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = now

	if now.Sub(r.lastSweep) >= sweepInterval {
		for ip, v := range r.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(r.visitors, ip)
			}
		}
		r.lastSweep = now
	}
	r.mu.Unlock()

	return v.bucket.Allow()
}
