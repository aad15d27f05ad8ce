package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/models"
	"golang.org/x/time/rate"
)

// Caller identifies who a request is counted against.
type Caller struct {
	Key  string
	Tier int
}

// CallerResolver maps a request to a caller. Anonymous requests should be keyed by client IP.
type CallerResolver func(r *http.Request) Caller

// limiterIdleTTL is how long a bucket may go unused before it is dropped. An
// idle bucket has long refilled, so dropping it does not change any decision.
const limiterIdleTTL = 10 * time.Minute

type bucket struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimiter keeps one token bucket per caller, sized by tier. Buckets unused
// for limiterIdleTTL are swept when new callers arrive.
type RateLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*bucket
	lastSweep time.Time
	now       func() time.Time

	basic   rate.Limit
	premium rate.Limit
	burst   int
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
		basic:     rate.Limit(cfg.BasicRPS),
		premium:   rate.Limit(cfg.PremiumRPS),
		burst:     cfg.Burst,
	}
}

func (rl *RateLimiter) limitFor(tier int) rate.Limit {
	if tier > models.TierBasic {
		return rl.premium
	}
	return rl.basic
}

func (rl *RateLimiter) limiter(c Caller) *rate.Limiter {
	key := c.Key + "#" + strconv.Itoa(c.Tier)
	now := rl.now()

	rl.mu.RLock()
	b, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		b.lastSeen.Store(now.UnixNano())
		return b.lim
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok := rl.limiters[key]; ok {
		b.lastSeen.Store(now.UnixNano())
		return b.lim
	}
	if now.Sub(rl.lastSweep) >= limiterIdleTTL {
		rl.sweep(now)
	}
	b = &bucket{lim: rate.NewLimiter(rl.limitFor(c.Tier), rl.burst)}
	b.lastSeen.Store(now.UnixNano())
	rl.limiters[key] = b
	return b.lim
}

// sweep drops idle buckets. Callers hold rl.mu for writing.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	for key, b := range rl.limiters {
		if b.lastSeen.Load() < cutoff {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

// Allow consumes one token for c.
func (rl *RateLimiter) Allow(c Caller) bool {
	return rl.limiter(c).Allow()
}

// Middleware rejects callers that exceeded their tier's rate with 429.
func (rl *RateLimiter) Middleware(resolve CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := resolve(r)
			if c.Key == "" {
				c = Caller{Key: ClientIP(r), Tier: models.TierBasic}
			}
			if !rl.Allow(c) {
				w.Header().Set("Retry-After", "1")
				httpx.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded", map[string]any{
					"tier":  c.Tier,
					"limit": float64(rl.limitFor(c.Tier)),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the remote host without port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
