package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterEntry tracks the limiter of a single identifier
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per identifier (IP or user id)
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
}

// NewRateLimiter creates a limiter allowing r requests per second with burst b.
// Identifiers idle for more than five minutes are forgotten.
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
		idleTTL:  5 * time.Minute,
	}

	go rl.cleanupStale()

	return rl
}

// Allow consumes one token for identifier
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	entry, exists := rl.limiters[identifier]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[identifier] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

func (rl *RateLimiter) cleanupStale() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for id, entry := range rl.limiters {
			if time.Since(entry.lastSeen) > rl.idleTTL {
				delete(rl.limiters, id)
			}
		}
		rl.mu.Unlock()
	}
}

// limit builds middleware keyed by key(c); an empty key skips limiting
func limit(rl *RateLimiter, key func(*gin.Context) string, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := key(c)
		if id == "" {
			c.Next()
			return
		}
		if !rl.Allow(id) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// PerIP creates middleware that rate limits by client IP
func PerIP(requestsPerSecond float64, burst int) gin.HandlerFunc {
	rl := NewRateLimiter(rate.Limit(requestsPerSecond), burst)
	return limit(rl, func(c *gin.Context) string { return c.ClientIP() },
		"Rate limit exceeded. Please try again later.")
}

// PerUser creates middleware that rate limits by authenticated user.
// Unauthenticated requests pass through.
func PerUser(requestsPerSecond float64, burst int) gin.HandlerFunc {
	rl := NewRateLimiter(rate.Limit(requestsPerSecond), burst)
	return limit(rl, GetUserID, "Rate limit exceeded. Please slow down.")
}

// WebSocketLimiter throttles messages on a single websocket connection
type WebSocketLimiter struct {
	limiter *rate.Limiter
}

// NewWebSocketLimiter allows messagesPerMinute messages, bursting up to the same amount
func NewWebSocketLimiter(messagesPerMinute int) *WebSocketLimiter {
	return &WebSocketLimiter{
		limiter: rate.NewLimiter(rate.Limit(messagesPerMinute)/60.0, messagesPerMinute),
	}
}

// Allow checks if a message is allowed
func (wsl *WebSocketLimiter) Allow() bool {
	return wsl.limiter.Allow()
}
