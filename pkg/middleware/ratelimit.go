package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
	CleanupInterval   time.Duration
}

// RateLimiter manages per-client token buckets keyed by an opaque
// identifier. The middleware keys on the client IP.
type RateLimiter struct {
	config RateLimitConfig
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

// clientLimiter holds the token bucket for a single client
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
// Call Stop to terminate the loop.
func NewRateLimiter(config RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	rl := &RateLimiter{
		config:  config,
		logger:  logger.Named("ratelimit"),
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (r *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stop:
			return
		}
	}
}

// cleanup removes limiters that haven't been used in a while
func (r *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-30 * time.Minute)
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, client := range r.clients {
		if client.lastSeen.Before(cutoff) {
			delete(r.clients, key)
		}
	}
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// getLimiter returns the limiter for a key, creating if needed
func (r *RateLimiter) getLimiter(key string) *clientLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, exists := r.clients[key]
	if exists {
		client.lastSeen = time.Now()
		return client
	}

	limit := rate.Limit(float64(r.config.RequestsPerMinute) / 60.0)
	burst := r.config.BurstSize
	if burst < 1 {
		burst = 1
	}
	client = &clientLimiter{
		limiter:  rate.NewLimiter(limit, burst),
		lastSeen: time.Now(),
	}
	r.clients[key] = client
	return client
}

// Allow reports whether a request under the given key may proceed.
// Always true when the limiter is disabled.
func (r *RateLimiter) Allow(key string) bool {
	if !r.config.Enabled {
		return true
	}
	return r.getLimiter(key).limiter.Allow()
}

// retryAfterSeconds estimates how long a limited client should wait
// before the next token becomes available
func (r *RateLimiter) retryAfterSeconds() int {
	if r.config.RequestsPerMinute <= 0 {
		return 60
	}
	secs := int(math.Ceil(60.0 / float64(r.config.RequestsPerMinute)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimitMiddleware returns a Gin middleware that applies per-client-IP
// rate limiting
func RateLimitMiddleware(rl *RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if !rl.Allow(clientIP) {
			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
