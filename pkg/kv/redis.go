package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "energy:realtime:"
	indexSuffix      = "__keys"
)

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TTL bounds how long an entry survives without updates; zero keeps it forever.
	TTL       time.Duration
	KeyPrefix string
}

// RedisStore shares realtime entries between service instances. Each entry is
// one string key; a set indexes the live keys so Keys never needs SCAN.
type RedisStore struct {
	client *redis.Client
	prefix string
	index  string
	ttl    time.Duration
}

func OpenRedis(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), nil
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		index:  prefix + indexSuffix,
		ttl:    ttl,
	}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, r.ttl)
		pipe.SAdd(ctx, r.index, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.key(key))
		pipe.SRem(ctx, r.index, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis delete %s: %w", key, err)
	}
	return del.Val() > 0, nil
}

// Keys lists indexed keys, pruning index members whose value already expired.
func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.index).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list keys: %w", err)
	}
	if len(members) == 0 {
		return []string{}, nil
	}

	pipe := r.client.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, m := range members {
		exists[i] = pipe.Exists(ctx, r.key(m))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis check keys: %w", err)
	}

	keys := make([]string, 0, len(members))
	var stale []any
	for i, m := range members {
		if exists[i].Val() > 0 {
			keys = append(keys, m)
		} else {
			stale = append(stale, m)
		}
	}

	if len(stale) > 0 {
		r.client.SRem(ctx, r.index, stale...)
	}

	return keys, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Name() string {
	return "redis"
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
