package keylock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/partnerpayout/internal/config"
)

const keyPrefix = "partnerpayout:lock:"

// RedisLocker holds keys in redis so ingestion replicas serialize on the
// same (cycle, loan) pair.
type RedisLocker struct {
	client *redislock.Client
	policy *config.PayoutPolicyHolder
}

func NewRedisLocker(rdb redis.UniversalClient, policy *config.PayoutPolicyHolder) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		policy: policy,
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (ReleaseFunc, error) {
	p := l.policy.Get()

	// the lock TTL must outlive the wait so a waiter never steals a live lock
	waitCtx, cancel := context.WithTimeout(ctx, p.LockWait)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, keyPrefix+key, p.LockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
