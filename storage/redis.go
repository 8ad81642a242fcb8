package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"crowdfundr/sdk"
)

const redisPrefix = "crowdfundr:"

// Redis keeps every state key as a plain string under a shared prefix. Apply wraps the batch
// in MULTI/EXEC.
type Redis struct {
	rdb *redis.Client
}

// OpenRedis parses a redis:// url and checks the connection.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	r := &Redis{rdb: redis.NewClient(opts)}
	if err := r.Ping(ctx); err != nil {
		_ = r.rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return r, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (r *Redis) Apply(ctx context.Context, muts []sdk.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range muts {
			if m.Delete {
				p.Del(ctx, redisPrefix+m.Key)
				continue
			}
			p.Set(ctx, redisPrefix+m.Key, m.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis apply: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
