package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewMemoryLimiter refills ratePerMinute tokens per minute up to burst.
func NewMemoryLimiter(ratePerMinute float64, burst int) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		rate:    ratePerMinute / 60.0,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: float64(l.burst) - 1, lastCheck: now}
		return true, 0, nil
	}

	b.tokens += now.Sub(b.lastCheck).Seconds() * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastCheck = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0, nil
	}
	if l.rate <= 0 {
		return false, time.Minute, nil
	}
	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return false, wait, nil
}

// Sweep drops buckets untouched for idle.
func (l *MemoryLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastCheck) > idle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)
	return { allowed, retry_after_ms }
`)

// RedisLimiter shares token buckets across instances through a Lua script.
type RedisLimiter struct {
	rdb      *redis.Client
	prefix   string
	capacity int
	interval time.Duration
}

// NewRedisLimiter refills one token every minute/ratePerMinute up to burst.
func NewRedisLimiter(rdb *redis.Client, prefix string, ratePerMinute float64, burst int) *RedisLimiter {
	if burst < 1 {
		burst = 1
	}
	interval := time.Minute
	if ratePerMinute > 0 {
		interval = time.Duration(float64(time.Minute) / ratePerMinute)
	}
	return &RedisLimiter{rdb: rdb, prefix: strings.TrimSuffix(prefix, ":"), capacity: burst, interval: interval}
}

func (l *RedisLimiter) key(k string) string {
	return l.prefix + ":" + k
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ttl := int64(math.Ceil((l.interval * time.Duration(l.capacity+1)).Seconds()))
	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{l.key(key)},
		time.Now().UnixMilli(), l.capacity, l.interval.Milliseconds(), ttl).Int64Slice()
	if err != nil {
		return true, 0, err
	}
	if len(vals) != 2 {
		return true, 0, fmt.Errorf("unexpected rate limit script result %v", vals)
	}
	return vals[0] == 1, time.Duration(vals[1]) * time.Millisecond, nil
}

// RateLimit throttles requests per client IP. Limiter failures let the request through.
func RateLimit(l Limiter, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, retry, err := l.Allow(c.Request.Context(), name+":"+ip)
		if err != nil {
			xlog.Warn("Rate limiter unavailable", "limiter", name, "error", err)
			c.Next()
			return
		}
		if !allowed {
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			xlog.Info("Rate limit exceeded", "limiter", name, "ip", ip, "path", c.FullPath())
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests, try again later"))
			return
		}
		c.Next()
	}
}
