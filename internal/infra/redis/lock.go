// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockHeld = errors.New("lock held by another owner")

// Leader holds a TTL'd key while this process owns a singleton role
// (scheduler or long-poll).
// Refresh must run more often than the TTL.
type Leader struct {
	cli   *redis.Client
	key   string
	ttl   time.Duration
	token string
}

func NewLeader(c *Client, key string, ttl time.Duration) *Leader {
	return &Leader{cli: c.cli, key: key, ttl: ttl, token: uuid.NewString()}
}

func (l *Leader) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.cli.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	// a restart of the same owner keeps leadership
	cur, err := l.cli.Get(ctx, l.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return cur == l.token, nil
}

var luaRefresh = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

func (l *Leader) Refresh(ctx context.Context) error {
	n, err := luaRefresh.Run(ctx, l.cli, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockHeld
	}
	return nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *Leader) Release(ctx context.Context) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{l.key}, l.token).Result()
	return err
}
