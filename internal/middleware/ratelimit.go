package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// Limiters idle for longer than this are dropped.
	CleanupInterval time.Duration
}

var DefaultRateLimiterConfig = RateLimiterConfig{
	RequestsPerSecond: 10.0,
	BurstSize:         20,
	CleanupInterval:   5 * time.Minute,
}

// MessageRateLimiterConfig caps inbound room messages per session.
var MessageRateLimiterConfig = RateLimiterConfig{
	RequestsPerSecond: 5.0,
	BurstSize:         10,
	CleanupInterval:   5 * time.Minute,
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	limiters    map[string]*clientLimiter
	mu          sync.Mutex
	config      RateLimiterConfig
	logger      zerolog.Logger
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func NewRateLimiter(config RateLimiterConfig, logger zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters:    make(map[string]*clientLimiter),
		config:      config,
		logger:      logger.With().Str("component", "ratelimit").Logger(),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, exists := rl.limiters[clientID]
	if !exists {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
		}
		rl.limiters[clientID] = cl
	}
	cl.lastSeen = time.Now()

	return cl.limiter.Allow()
}

// Forget drops a client's bucket, e.g. when its connection closes.
func (rl *RateLimiter) Forget(clientID string) {
	rl.mu.Lock()
	delete(rl.limiters, clientID)
	rl.mu.Unlock()
}

func (rl *RateLimiter) GetLimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-rl.config.CleanupInterval))
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for clientID, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, clientID)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug().Int("removed", removed).Msg("Cleaned up inactive rate limiters")
	}
	return removed
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// Gin limits requests per authenticated account, falling back to the client IP.
func (rl *RateLimiter) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("user_id")
		if clientID == "" {
			clientID = c.ClientIP()
		}

		if !rl.Allow(clientID) {
			rl.logger.Warn().Str("client", clientID).Str("path", c.FullPath()).Msg("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please slow down."})
			return
		}
		c.Next()
	}
}
