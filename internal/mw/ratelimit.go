package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters hands out one token bucket per calling client. Buckets are
// created on first sight and kept for the life of the process; the client
// population is a residence's worth of phones, not the open internet.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (cl *clientLimiters) get(client string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	b, ok := cl.buckets[client]
	if !ok {
		b = rate.NewLimiter(cl.limit, cl.burst)
		cl.buckets[client] = b
	}
	return b
}

// RateLimiter rejects a request with 429 once its client has exhausted its
// token bucket. Clients are told apart by IP: user identity travels in
// request bodies and is self-declared, so the address is the only handle a
// caller cannot pick for themselves.
func RateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	limiters := newClientLimiters(limit, burst)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
