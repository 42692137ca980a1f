package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingLog keeps one sorted set member per admitted request, scored by ms
var slidingLog = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if #oldest == 2 then first = tonumber(oldest[2]) end
return {allowed, count, first}
`)

// Redis is a sliding log limiter shared by every api instance
type Redis struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis returns a limiter storing its log under prefix+key
func NewRedis(client redis.Scripter, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a request for key when it fits in the window
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	res, err := slidingLog.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(), r.window.Milliseconds(), r.limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	d := Decision{
		Allowed: res[0] == 1,
		Limit:   r.limit,
		Reset:   time.UnixMilli(res[2]).In(now.Location()).Add(r.window),
	}
	if d.Allowed {
		d.Remaining = r.limit - int(res[1])
	} else {
		d.RetryAfter = d.Reset.Sub(now)
	}
	return d, nil
}
