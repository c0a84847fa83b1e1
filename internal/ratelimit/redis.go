package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket refills, then tries to take one token.
// KEYS[1] bucket hash; ARGV: capacity, tokens per ms, now in ms.
// Returns {allowed (0|1), wait in ms}.
var tokenBucket = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now
end
if now > ts then
	tokens = math.min(capacity, tokens + (now - ts) * rate)
	ts = now
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(ts))
redis.call("PEXPIRE", KEYS[1], math.ceil((capacity - tokens) / rate) + 1000)
return {allowed, wait}
`)

// RedisGovernor keeps token buckets in Redis so every replica shares them.
type RedisGovernor struct {
	rdb      redis.Scripter
	policies Policies
	prefix   string
	now      func() time.Time
}

type RedisOption func(*RedisGovernor)

func WithPrefix(prefix string) RedisOption {
	return func(g *RedisGovernor) { g.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisOption {
	return func(g *RedisGovernor) { g.now = now }
}

func NewRedisGovernor(rdb redis.Scripter, policies Policies, opts ...RedisOption) *RedisGovernor {
	g := &RedisGovernor{
		rdb:      rdb,
		policies: policies,
		prefix:   "ratelimit",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit runs the bucket script for (class, key). Classes without a policy are
// always admitted; Redis errors are returned so the caller can fail the request.
func (g *RedisGovernor) Admit(ctx context.Context, class, key string) (Decision, error) {
	pol, ok := g.policies[class]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	perMs := pol.PerSecond() / 1000
	nowMs := g.now().UnixMilli()
	k := g.prefix + ":" + bucketKey(class, key)

	res, err := tokenBucket.Run(ctx, g.rdb, []string{k}, pol.Capacity, perMs, nowMs).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit script: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit script: unexpected reply %v", res)
	}
	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}
