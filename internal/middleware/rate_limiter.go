package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"requisiciones/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per client within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

// rateLimiter counts requests per client key. Authenticated requests are
// keyed by user id so a shared NAT does not throttle a whole office.
type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{entries: make(map[string]*rateEntry), limit: limit, window: window}
}

// allow registers one request for key and reports whether it is within the limit.
func (l *rateLimiter) allow(key string, now time.Time) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(l.window)}
		l.entries[key] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

// purge removes expired windows and returns how many were dropped.
func (l *rateLimiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for key, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, key)
			purged++
		}
	}
	return purged
}

func clientKey(c *gin.Context) string {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*JWTClaims); ok && claims != nil {
			return "u:" + strconv.FormatUint(uint64(claims.UserID), 10)
		}
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter returns a fixed-window rate limiter. A background goroutine
// purges expired entries every purgeInterval until ctx is done.
func RateLimiter(ctx context.Context, limit int, window time.Duration) gin.HandlerFunc {
	l := newRateLimiter(limit, window)
	go purgeExpiredEntries(ctx, l, purgeInterval)

	return func(c *gin.Context) {
		ok, windowEnd := l.allow(clientKey(c), time.Now())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(windowEnd).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

const purgeInterval = 5 * time.Minute

func purgeExpiredEntries(ctx context.Context, l *rateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := l.purge(now); n > 0 {
				log.Debug().Int("entries_purged", n).Msg("rate limiter map purged")
			}
		}
	}
}
