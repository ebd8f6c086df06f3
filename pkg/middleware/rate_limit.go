package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/pkg/metrics"
	"golang.org/x/time/rate"
)

// getLimiter returns (and lazily creates) a token-bucket limiter for the given key
func getLimiter(store *sync.Map, key string, rps float64, burst int) *rate.Limiter {
	if v, ok := store.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := store.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
	return v.(*rate.Limiter)
}

// rateKey prefers the resolved session user so users behind one NAT do not
// share a bucket. Anonymous callers are keyed by client IP.
func rateKey(c *gin.Context) string {
	if id := StateFromContext(c).UserID(); id != "" {
		return "user:" + id
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// It must run after SessionLoader to key by user.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var store sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		lim := getLimiter(&store, rateKey(c), rps, burst)
		if !lim.Allow() {
			// set common rate limit headers (informational)
			c.Header("Retry-After", "1")
			// record metric and reject
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		// record allowed
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
