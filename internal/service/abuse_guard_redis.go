package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Failure bookkeeping runs inside one Lua script so concurrent failures for
// the same key cannot interleave between read and write.
var abuseBumpScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local base_ms = tonumber(ARGV[2])
local multiplier = tonumber(ARGV[3])
local max_ms = tonumber(ARGV[4])
local reset_ms = tonumber(ARGV[5])
local free_attempts = tonumber(ARGV[6])

local key = KEYS[1]
local fail_count = tonumber(redis.call("HGET", key, "fail_count") or "0")
local last_failure_ms = tonumber(redis.call("HGET", key, "last_failure_ms") or "0")

if last_failure_ms == 0 or (now_ms - last_failure_ms) > reset_ms then
  fail_count = 0
end

fail_count = fail_count + 1
local delay = 0
if fail_count > free_attempts then
  delay = math.floor(base_ms * (multiplier ^ (fail_count - free_attempts - 1)))
end
if delay > max_ms then
  delay = max_ms
end

local cooldown_until_ms = now_ms + delay
redis.call("HSET", key, "fail_count", tostring(fail_count), "last_failure_ms", tostring(now_ms), "cooldown_until_ms", tostring(cooldown_until_ms))
redis.call("PEXPIRE", key, reset_ms + delay + 60000)
return delay
`)

// RedisAbuseGuard shares cooldown state across instances.
type RedisAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AbusePolicy
}

func NewRedisAbuseGuard(client redis.UniversalClient, prefix string, policy AbusePolicy) *RedisAbuseGuard {
	if prefix == "" {
		prefix = "activation_abuse"
	}
	return &RedisAbuseGuard{client: client, prefix: prefix, policy: normalizeAbusePolicy(policy)}
}

func (g *RedisAbuseGuard) Check(ctx context.Context, scope AbuseScope, subject, ip string) (time.Duration, error) {
	now := time.Now().UTC()
	subjectDelay, err := g.cooldownForKey(ctx, abuseStateKey(g.prefix, scope, "subject", normalizeAbuseSubject(subject)), now)
	if err != nil {
		return 0, err
	}
	ipDelay, err := g.cooldownForKey(ctx, abuseStateKey(g.prefix, scope, "ip", normalizeAbuseIP(ip)), now)
	if err != nil {
		return 0, err
	}
	return max(subjectDelay, ipDelay), nil
}

func (g *RedisAbuseGuard) RegisterFailure(ctx context.Context, scope AbuseScope, subject, ip string) (time.Duration, error) {
	nowMS := time.Now().UTC().UnixMilli()
	subjectDelay, err := g.bumpKey(ctx, abuseStateKey(g.prefix, scope, "subject", normalizeAbuseSubject(subject)), nowMS)
	if err != nil {
		return 0, err
	}
	ipDelay, err := g.bumpKey(ctx, abuseStateKey(g.prefix, scope, "ip", normalizeAbuseIP(ip)), nowMS)
	if err != nil {
		return 0, err
	}
	return max(subjectDelay, ipDelay), nil
}

func (g *RedisAbuseGuard) Reset(ctx context.Context, scope AbuseScope, subject, ip string) error {
	_, err := g.client.Del(
		ctx,
		abuseStateKey(g.prefix, scope, "subject", normalizeAbuseSubject(subject)),
		abuseStateKey(g.prefix, scope, "ip", normalizeAbuseIP(ip)),
	).Result()
	return err
}

func (g *RedisAbuseGuard) bumpKey(ctx context.Context, key string, nowMS int64) (time.Duration, error) {
	result, err := abuseBumpScript.Run(
		ctx,
		g.client,
		[]string{key},
		nowMS,
		g.policy.BaseDelay.Milliseconds(),
		g.policy.Multiplier,
		g.policy.MaxDelay.Milliseconds(),
		g.policy.ResetWindow.Milliseconds(),
		g.policy.FreeAttempts,
	).Result()
	if err != nil {
		return 0, err
	}
	delayMS, err := parseRedisInt64(result)
	if err != nil {
		return 0, err
	}
	return time.Duration(max(delayMS, int64(0))) * time.Millisecond, nil
}

func (g *RedisAbuseGuard) cooldownForKey(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	values, err := g.client.HMGet(ctx, key, "last_failure_ms", "cooldown_until_ms").Result()
	if err != nil {
		return 0, err
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return 0, nil
	}
	lastFailureMS, err := parseRedisInt64(values[0])
	if err != nil {
		return 0, err
	}
	cooldownUntilMS, err := parseRedisInt64(values[1])
	if err != nil {
		return 0, err
	}
	nowMS := now.UnixMilli()
	if nowMS-lastFailureMS > g.policy.ResetWindow.Milliseconds() {
		return 0, nil
	}
	if cooldownUntilMS <= nowMS {
		return 0, nil
	}
	return time.Duration(cooldownUntilMS-nowMS) * time.Millisecond, nil
}

func parseRedisInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("redis response overflows int64")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case string:
		var parsed int64
		if _, err := fmt.Sscan(n, &parsed); err != nil {
			return 0, fmt.Errorf("unexpected redis response %q", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
