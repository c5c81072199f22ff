package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldVersion = "v"
	fieldData    = "d"
)

// Redis stores each record as a hash of version and data. Writes run under
// WATCH so a concurrent writer aborts the transaction.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL is refreshed on every write. Zero keeps records forever.
	TTL time.Duration
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb, ttl: opts.TTL}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, error) {
	vals, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Entry{}, err
	}
	return decodeHash(vals)
}

func decodeHash(vals map[string]string) (Entry, error) {
	if len(vals) == 0 {
		return Entry{}, ErrNotFound
	}
	v, err := strconv.ParseInt(vals[fieldVersion], 10, 64)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Version: v, Value: []byte(vals[fieldData])}, nil
}

func (r *Redis) Create(ctx context.Context, key string, value []byte) error {
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, 1, fieldData, value)
			r.expire(ctx, pipe, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrExists
	}
	return err
}

func (r *Redis) CompareAndSwap(ctx context.Context, key string, version int64, value []byte) (int64, error) {
	next := version + 1
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if cur != version {
			return ErrConcurrentModification
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, next, fieldData, value)
			r.expire(ctx, pipe, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, ErrConcurrentModification
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *Redis) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
}

func (r *Redis) Push(ctx context.Context, key string, value []byte) error {
	return r.rdb.RPush(ctx, key, value).Err()
}

func (r *Redis) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := r.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
