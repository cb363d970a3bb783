package keylock

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/partnerpayout/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("keylock",
	fx.Provide(NewLocker),
)

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    config.Config
	Policy *config.PayoutPolicyHolder
	Log    *zap.Logger
}

// NewLocker returns a redis-backed locker when REDIS_ADDRESS is set and an
// in-process one otherwise.
func NewLocker(p Params) Locker {
	log := p.Log.Named("keylock")
	if p.Cfg.RedisAddress == "" {
		log.Info("redis not configured; using in-process key locks")
		return NewLocalLocker()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.RedisAddress,
		Password: p.Cfg.RedisPassword,
		DB:       p.Cfg.RedisDB,
		PoolSize: 100,
	})
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", p.Cfg.RedisAddress), zap.Error(err))
				return err
			}
			log.Info("connected to redis", zap.String("addr", p.Cfg.RedisAddress))
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return NewRedisLocker(rdb, p.Policy)
}
