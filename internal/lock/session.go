// Package lock keeps two runs from driving the same WhatsApp account at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrHeld = errors.New("session lock held by another run")
	ErrLost = errors.New("session lock lost")
)

// compare-and-delete / compare-and-extend so a run only touches its own lease
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Session is a lease on a redis key owned by one run.
type Session struct {
	rdb   *redis.Client
	key   string
	owner string
	ttl   time.Duration
}

// Acquire takes the lease or fails with ErrHeld naming the current owner.
func Acquire(ctx context.Context, rdb *redis.Client, key, owner string, ttl time.Duration) (*Session, error) {
	ok, err := rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		holder, _ := rdb.Get(ctx, key).Result()
		return nil, fmt.Errorf("%w (key=%s owner=%s)", ErrHeld, key, holder)
	}

	return &Session{rdb: rdb, key: key, owner: owner, ttl: ttl}, nil
}

// Refresh pushes the expiry out by ttl; ErrLost if someone else owns it now.
func (s *Session) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, s.rdb, []string{s.key}, s.owner, s.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

// KeepAlive refreshes every ttl/3 until ctx ends.
func (s *Session) KeepAlive(ctx context.Context, log *zap.Logger) {
	tick := time.NewTicker(s.ttl / 3)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := s.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("session lock refresh failed", zap.String("key", s.key), zap.Error(err))
			}
		}
	}
}

// Release drops the lease if still owned.
func (s *Session) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, s.rdb, []string{s.key}, s.owner).Err()
}
