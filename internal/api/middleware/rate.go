package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
	}
}

// Idle clients are swept from the pool after this long.
const clientIdleTTL = 3 * time.Minute

// limiterPool hands out one token bucket per client key and forgets
// clients that have gone quiet.
type limiterPool struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	clients map[string]*pooledLimiter
}

type pooledLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	p := &limiterPool{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		clients: make(map[string]*pooledLimiter),
	}
	go p.sweep()
	return p
}

// allow reports whether the client may proceed, creating its bucket on
// first sight.
func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	pl, ok := p.clients[key]
	if !ok {
		pl = &pooledLimiter{bucket: rate.NewLimiter(p.rps, p.burst)}
		p.clients[key] = pl
	}
	pl.lastSeen = time.Now()
	bucket := pl.bucket
	p.mu.Unlock()

	return bucket.Allow()
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		for key, pl := range p.clients {
			if time.Since(pl.lastSeen) > clientIdleTTL {
				delete(p.clients, key)
			}
		}
		p.mu.Unlock()
	}
}

func tooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	c.Abort()
}

// RateLimit limits each client IP independently.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(cfg)

	return func(c *gin.Context) {
		if !pool.allow(c.ClientIP()) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit applies one shared bucket to all clients.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	bucket := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !bucket.Allow() {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}
