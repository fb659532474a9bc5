package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/utils"
)

type RateLimitConfig struct {
	Burst             int              // bucket capacity per client
	RefillPerIPPerMin int              // tokens added per minute
	MaxEntries        int              // sweep early once this many clients are tracked, 0 = unbounded
	SweepInterval     time.Duration    // defaults to 1m
	IdleTTL           time.Duration    // forget clients idle for this long, defaults to 15m
	TrustProxy        bool             // resolve IP from proxy headers when true
	Now               func() time.Time // defaults to time.Now
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 15 * time.Minute
	}
	c.Burst = max(c.Burst, 1)
	c.RefillPerIPPerMin = max(c.RefillPerIPPerMin, 1)
	return c
}

type bucket struct {
	tokens float64
	last   time.Time
}

// decision is the outcome of one take.
type decision struct {
	allowed    bool
	remaining  int
	retryAfter int // seconds, only set when rejected
}

type limiter struct {
	cfg      RateLimitConfig
	perSec   float64
	mu       sync.Mutex
	buckets  map[string]*bucket
	sweptAt  time.Time
	capacity float64
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg = cfg.withDefaults()
	return &limiter{
		cfg:      cfg,
		perSec:   float64(cfg.RefillPerIPPerMin) / 60,
		capacity: float64(cfg.Burst),
		buckets:  make(map[string]*bucket),
		sweptAt:  cfg.Now(),
	}
}

// take spends one token of key's bucket at now.
func (l *limiter) take(key string, now time.Time) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweptAt) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	}
	if dt := now.Sub(b.last).Seconds(); dt > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+dt*l.perSec)
	}
	b.last = now

	if b.tokens < 1 {
		wait := int(math.Ceil((1 - b.tokens) / l.perSec))
		return decision{retryAfter: max(wait, 1)}
	}
	b.tokens--
	return decision{allowed: true, remaining: int(b.tokens)}
}

func (l *limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.last) > l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.sweptAt = now
}

// RateLimit is a per-client token bucket. Rejected requests get 429 with
// Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.take(utils.ClientIP(r, l.cfg.TrustProxy), l.cfg.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			if !d.allowed {
				h.Set("Retry-After", strconv.Itoa(d.retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
