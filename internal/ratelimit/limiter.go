// ratelimit реализует распределённый token bucket поверх Redis.
//
// Состояние ведра (tokens, last_refill_ms) хранится в hash-ключе и
// обновляется атомарно Lua-скриптом, поэтому несколько экземпляров сервиса
// делят один лимит на клиента.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-room-booking/internal/config"
)

var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals * refill_tokens)
		last_refill = last_refill + intervals * interval_ms
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

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// Result — решение лимитера для одного запроса.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter — token bucket в Redis.
type Limiter struct {
	rdb redis.Scripter
	cfg config.RateLimitConfig
	now func() time.Time
}

// New создаёт лимитер.
func New(rdb redis.Scripter, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		rdb: rdb,
		cfg: cfg,
		now: time.Now,
	}
}

// Connect разбирает redis URL и проверяет соединение.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	const op = "ratelimit.Connect"

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rdb, nil
}

// Key собирает ключ ведра: "<prefix>:<scope>:<id>".
func (l *Limiter) Key(scope, id string) string {
	if id == "" {
		id = "unknown"
	}

	return l.cfg.Prefix + ":" + scope + ":" + id
}

// Allow списывает токен из ведра key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.Allow"

	args := []any{
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}

	vals, err := bucketScript.Run(ctx, l.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(vals) != 3 {
		return Result{}, fmt.Errorf("%s: unexpected script result %v", op, vals)
	}

	return Result{
		Allowed:    vals[0] == 1,
		Limit:      l.cfg.Capacity,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// RetryAfterSeconds округляет RetryAfter вверх до целых секунд.
func (r Result) RetryAfterSeconds() string {
	secs := int64((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 && !r.Allowed {
		secs = 1
	}

	return strconv.FormatInt(secs, 10)
}
