package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTimeout 单次操作超时时间
	DefaultTimeout = 5 * time.Second
	// DefaultMaxRetries 乐观事务的最大重试次数
	DefaultMaxRetries = 5
)

// RedisStore 基于 Redis 的 Store 实现
// Update 使用 WATCH/MULTI 事务：并发修改同一个 key 时事务失败并重试，
// 保证整集合的读取-修改-写回不会丢失中间写入。
type RedisStore struct {
	client     *redis.Client
	maxRetries int
}

// NewRedisStore 创建 RedisStore
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:     client,
		maxRetries: DefaultMaxRetries,
	}
}

// Get 读取 key 的当前值
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set 覆盖写入，业务数据不设置过期时间
func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	return s.client.Set(ctx, key, value, 0).Err()
}

// Update 在 WATCH 事务中执行读取-修改-写回
func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Result()
		ok := true
		if errors.Is(err, redis.Nil) {
			old, ok = "", false
		} else if err != nil {
			return err
		}

		next, err := fn(old, ok)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		opCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		err := s.client.Watch(opCtx, txf, key)
		cancel()

		if errors.Is(err, redis.TxFailedErr) {
			// 其他请求抢先写入了该 key，重试
			continue
		}
		return err
	}
	return ErrUpdateConflict
}
