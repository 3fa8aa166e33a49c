package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// rateEntry tracks request counts per key within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

// windowLimiter counts hits per key. Expired entries are purged lazily so
// keys that never return do not accumulate.
type windowLimiter struct {
	mu        sync.Mutex
	entries   map[string]*rateEntry
	limit     int
	window    time.Duration
	nextPurge time.Time
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{entries: make(map[string]*rateEntry), limit: limit, window: window}
}

// allow records one hit and reports whether it is within the limit, plus
// when the current window ends.
func (l *windowLimiter) allow(key string, now time.Time) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextPurge) {
		l.purge(now)
		l.nextPurge = now.Add(purgeInterval)
	}

	entry, ok := l.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(l.window)}
		l.entries[key] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

func (l *windowLimiter) purge(now time.Time) {
	purged := 0
	for key, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, key)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter purged")
	}
}

func limit(l *windowLimiter, key func(*gin.Context) string, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(key(c), time.Now())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.CodeRateLimited, msg))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general per-IP limiter.
func RateLimiter(n int, window time.Duration) gin.HandlerFunc {
	return limit(newWindowLimiter(n, window), func(c *gin.Context) string { return c.ClientIP() },
		"too many requests, try again shortly")
}

// ScanRateLimiter caps receipt scans per barn per minute.
func ScanRateLimiter(perMinute int) gin.HandlerFunc {
	if perMinute < 1 {
		perMinute = 1
	}
	return limit(newWindowLimiter(perMinute, time.Minute), func(c *gin.Context) string { return c.Param("barn_id") },
		"too many receipt scans for this barn, try again in a minute")
}
