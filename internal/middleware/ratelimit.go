package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
	"github.com/AnshRaj112/nutrilog-backend/pkg/clientip"
)

const (
	// RateLimitWindow is the fixed window the per-minute limit applies to.
	RateLimitWindow = time.Minute
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
)

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed-window counter shared by every instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: RateLimitWindow}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := RateLimitKeyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}
	if count == 1 {
		// First request opens the window
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	if int(count) <= l.limit {
		return Decision{Allowed: true, Remaining: l.limit - int(count)}, nil
	}

	retry, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit ttl: %w", err)
	}
	if retry <= 0 {
		// A window without expiry would block the key forever
		l.client.Expire(ctx, redisKey, l.window)
		retry = l.window
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

// LocalLimiter keeps a token bucket per key in memory. It is used when Redis
// is not configured, so limits are per instance.
type LocalLimiter struct {
	limit   int
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

const (
	localCleanupInterval = 5 * time.Minute
	localLimiterTTL      = 30 * time.Minute
)

func NewLocalLimiter(limit int) *LocalLimiter {
	return &LocalLimiter{limit: limit, entries: make(map[string]*limiterEntry)}
}

// StartCleanup evicts idle buckets until ctx is done.
func (l *LocalLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(localCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()
}

func (l *LocalLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if now.Sub(e.lastUse) > localLimiterTTL {
			delete(l.entries, key)
		}
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		// limit per minute, full minute of burst
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(RateLimitWindow/time.Duration(l.limit)), l.limit)}
		l.entries[key] = e
	}
	e.lastUse = time.Now()
	l.mu.Unlock()

	res := e.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(e.limiter.Tokens())}, nil
}

// RateLimitKey identifies the caller: the user id when authenticated, else the client IP.
func RateLimitKey(r *http.Request) string {
	if userID, ok := UserIDFromContext(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + clientip.RealClientIP(r)
}

// RateLimit rejects callers over limit requests per window with 429. Limiter
// failures let the request through.
func RateLimit(limiter Limiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Allow(r.Context(), RateLimitKey(r))
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			if !d.Allowed {
				metrics.RateLimited.Inc()
				retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Too many requests. Please slow down.","retry_after_seconds":%d}`, retryAfter)))
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
