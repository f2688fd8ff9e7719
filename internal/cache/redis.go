package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vaultScope/internal/model"
)

const tokenKeyPrefix = "vaultscope:token:"

// RedisTokenCache implements TokenCache on top of Redis. Entries expire
// after ttl; zero keeps them forever since token metadata is immutable.
type RedisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ TokenCache = (*RedisTokenCache)(nil)

func NewRedisTokenCache(addr, password string, db int, ttl time.Duration) *RedisTokenCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisTokenCache{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (r *RedisTokenCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisTokenCache) Close() error {
	return r.client.Close()
}

func (r *RedisTokenCache) GetToken(ctx context.Context, address string) (model.TokenMeta, error) {
	data, err := r.client.Get(ctx, tokenKeyPrefix+normalize(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.TokenMeta{}, ErrMiss
		}
		return model.TokenMeta{}, err
	}

	var meta model.TokenMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.TokenMeta{}, fmt.Errorf("failed to unmarshal token %s: %w", address, err)
	}
	return meta, nil
}

func (r *RedisTokenCache) SetToken(ctx context.Context, meta model.TokenMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal token %s: %w", meta.Address, err)
	}
	return r.client.Set(ctx, tokenKeyPrefix+normalize(meta.Address), data, r.ttl).Err()
}
