package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/gin-gonic/gin"
)

// Counter backs a fixed-window limiter. Hit returns the number of hits in
// the current window for key, including this one, and the time until the
// window resets.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type RateLimiter struct {
	name    string
	counter Counter
	limit   int64
	window  time.Duration
	prom    *observability.Prom
}

func NewRateLimiter(name string, counter Counter, limit int, window time.Duration, prom *observability.Prom) *RateLimiter {
	if counter == nil {
		counter = NewMemoryCounter()
	}

	return &RateLimiter{
		name:    name,
		counter: counter,
		limit:   int64(limit),
		window:  window,
		prom:    prom,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key. A limit <= 0
// disables the limiter. Counter failures let the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, resetIn, err := rl.counter.Hit(c.Request.Context(), rl.name+":"+key, rl.window)
		if err != nil {
			slog.Default().WarnContext(c.Request.Context(), "rate limiter unavailable",
				"limiter", rl.name,
				"err", err,
			)
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(resetIn.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			if rl.prom != nil {
				rl.prom.RateLimitHits.WithLabelValues(rl.name).Inc()
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":      "rate_limited",
					"message":   "Too many requests. Please try again shortly.",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		c.Next()
	}
}

// MemoryCounter is a process-local Counter.
type MemoryCounter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int64
	windowEnd time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		if len(m.clients) > 10000 {
			m.sweep(now)
		}

		b = &clientBucket{windowEnd: now.Add(window)}
		m.clients[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

// sweep drops expired buckets. Caller holds mu.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, b := range m.clients {
		if !now.Before(b.windowEnd) {
			delete(m.clients, k)
		}
	}
}

// helper functions

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available

func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok && id > 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}

	return KeyByIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
