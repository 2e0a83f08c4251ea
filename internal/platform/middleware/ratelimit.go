package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// KeyFunc names the bucket a request draws from.
type KeyFunc func(c echo.Context) string

// RateLimitConfig configures per-caller request budgets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// SkipPaths are exempt, e.g. the health check.
	SkipPaths []string
	// Key defaults to the client IP.
	Key KeyFunc
	// IdleTTL is how long an unused bucket is kept. Zero keeps buckets forever.
	IdleTTL time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
		SkipPaths:         []string{"/health"},
		IdleTTL:           10 * time.Minute,
	}
}

// IPKey buckets requests by client address.
func IPKey(c echo.Context) string {
	return "ip:" + c.RealIP()
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// limiter is a set of token buckets sharing one rate and burst.
type limiter struct {
	mu        sync.Mutex
	rate      float64
	burst     float64
	idleTTL   time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		rate:    cfg.RequestsPerSecond,
		burst:   float64(cfg.BurstSize),
		idleTTL: cfg.IdleTTL,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// take spends one token from key's bucket. When the bucket is empty it
// returns false and the seconds until a token is available.
func (l *limiter) take(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/l.rate) + 1
}

// sweep drops idle buckets at most once per IdleTTL. Callers hold mu.
func (l *limiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit rejects callers that exceed their budget with 429.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := newLimiter(cfg)
	key := cfg.Key
	if key == nil {
		key = IPKey
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip[c.Request().URL.Path] {
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if ok, wait := l.take(key(c)); !ok {
				h.Set("Retry-After", strconv.Itoa(wait))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
