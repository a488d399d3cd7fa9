// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	FailOpen   bool
	BypassFunc func(*http.Request) bool
}

// RateLimiter limits requests per key. With a redis client the window is
// shared across replicas; without one, or when redis fails, an in-process
// token bucket is used.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	rl := &RateLimiter{
		fallback: newLocalLimiter(),
		config:   cfg,
	}
	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyFunc(r)
		res, err := rl.allow(r.Context(), key, rl.config.Limit)
		if err != nil {
			if rl.config.FailOpen {
				slog.Warn("rate limiter error, failing open",
					"error", err,
					"key", key,
				)
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed == 0 {
			writeRateLimitExceeded(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	if rl.limiter == nil {
		return rl.fallback.allow(key, limit)
	}

	res, err := rl.limiter.Allow(ctx, key, limit)
	if err != nil {
		return rl.fallback.allow(key, limit)
	}
	return res, nil
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

// KeyBySession keys on the admission session when the request carries a
// session token and falls back to the client address.
func KeyBySession(r *http.Request) string {
	if sid := GetSessionID(r.Context()); sid != "" {
		return "ratelimit:session:" + sid
	}
	return KeyByIP(r)
}

// ClientIP returns the caller address, preferring the last proxy hop.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))

	windowSecs := int(limit.Period.Seconds())
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, windowSecs))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]any{
		"success": false,
		"error": map[string]any{
			"code": "RATE_LIMITED",
			"message": fmt.Sprintf(
				"Rate limit exceeded. Retry after %d seconds.",
				retryAfter,
			),
		},
	}

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(response)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

// localLimiter keeps one token bucket per key and prunes idle buckets on
// access.
type localLimiter struct {
	limiters  sync.Map
	lastPrune atomic.Int64
}

const (
	pruneInterval = 5 * time.Minute
	entryTTL      = 10 * time.Minute
)

func newLocalLimiter() *localLimiter {
	l := &localLimiter{}
	l.lastPrune.Store(time.Now().Unix())
	return l
}

func (l *localLimiter) prune(now int64) {
	last := l.lastPrune.Load()
	if now-last < int64(pruneInterval.Seconds()) ||
		!l.lastPrune.CompareAndSwap(last, now) {
		return
	}

	cutoff := now - int64(entryTTL.Seconds())
	l.limiters.Range(func(key, value any) bool {
		entry, ok := value.(*limiterEntry)
		if ok && entry.lastAccess.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	ratePerSec := float64(limit.Rate) / limit.Period.Seconds()
	now := time.Now().Unix()
	l.prune(now)

	entryI, loaded := l.limiters.Load(key)
	if !loaded {
		entryI, _ = l.limiters.LoadOrStore(key, &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(ratePerSec), limit.Burst),
		})
	}

	entry, ok := entryI.(*limiterEntry)
	if !ok {
		return nil, fmt.Errorf("invalid limiter entry type")
	}
	entry.lastAccess.Store(now)

	allowed := entry.limiter.Allow()

	remaining := int(entry.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	retryAfter := time.Duration(-1)
	allowedInt := 1
	if !allowed {
		retryAfter = time.Duration(float64(time.Second) / ratePerSec)
		allowedInt = 0
	}

	return &redis_rate.Result{
		Limit:      limit,
		Allowed:    allowedInt,
		Remaining:  remaining,
		RetryAfter: retryAfter,
		ResetAfter: time.Duration(float64(time.Second) / ratePerSec),
	}, nil
}

type TierLimit struct {
	RequestsPerMinute int
	BurstSize         int
}

// AnonymousTier is the limit key used for requests without a session.
const AnonymousTier = ""

// DefaultTierLimits scales the per-minute allowance with the license tier.
var DefaultTierLimits = map[string]TierLimit{
	AnonymousTier: {RequestsPerMinute: 30, BurstSize: 5},
	"BASIC":       {RequestsPerMinute: 20, BurstSize: 5},
	"PREMIUM":     {RequestsPerMinute: 120, BurstSize: 20},
}

// TieredRateLimiter limits by the license tier carried in the session
// token. Unknown tiers get the anonymous allowance.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[string]TierLimit,
) func(http.Handler) http.Handler {
	rl := NewRateLimiter(rdb, RateLimitConfig{KeyFunc: KeyBySession})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := GetTier(r.Context())

			cfg, ok := tiers[tier]
			if !ok {
				tier = AnonymousTier
				cfg = tiers[AnonymousTier]
			}

			limit := PerMinute(cfg.RequestsPerMinute, cfg.BurstSize)
			key := KeyBySession(r)

			//nolint:errcheck // local fallback never fails
			res, _ := rl.allow(r.Context(), key, limit)

			if tier != AnonymousTier {
				w.Header().Set("X-RateLimit-Tier", tier)
			}
			setRateLimitHeaders(w, res, limit)

			if res.Allowed == 0 {
				writeRateLimitExceeded(w, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Minute,
	}
}
