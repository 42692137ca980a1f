package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is a lease shared by every api instance
type Locker interface {
	TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name, owner string) error
}

// release only deletes the lock when owner still holds it
var release = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLock keeps job leases in redis
type RedisLock struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLock returns a lock storing leases under prefix+name
func NewRedisLock(client redis.UniversalClient, prefix string) *RedisLock {
	return &RedisLock{client: client, prefix: prefix}
}

// TryLock takes the lease for ttl when nobody holds it
func (l *RedisLock) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+name, owner, ttl).Result()
}

// Unlock gives the lease back if owner holds it
func (l *RedisLock) Unlock(ctx context.Context, name, owner string) error {
	return release.Run(ctx, l.client, []string{l.prefix + name}, owner).Err()
}
