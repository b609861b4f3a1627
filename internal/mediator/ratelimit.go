/**
 * @description
 * Distributed per-customer invocation rate limiting backed by Redis. A Lua
 * script increments and reads the window atomically so concurrent mediator
 * instances share one counter. A nil or unconfigured limiter fails open.
 */

package mediator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var invokeRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RateLimiter counts one invocation for a customer and reports the running
// count within the window plus the seconds until it resets.
type RateLimiter interface {
	ConsumeInvocation(ctx context.Context, customerID int64, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// RedisRateLimiter implements RateLimiter on a shared Redis instance.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = "interchat:rate_limit"
	}
	trimmed = strings.TrimSuffix(trimmed, ":")

	return &RedisRateLimiter{client: client, prefix: trimmed}
}

func (r *RedisRateLimiter) ConsumeInvocation(ctx context.Context, customerID int64, window time.Duration) (int, int, error) {
	if r == nil || r.client == nil || window <= 0 {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:invoke:%d", r.prefix, customerID)
	rawResult, err := invokeRateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	currentCount, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(currentCount), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(currentCount), retryAfter, nil
}
