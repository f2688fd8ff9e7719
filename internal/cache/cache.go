package cache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"vaultScope/internal/model"
)

// ErrMiss is returned when a token is not cached.
var ErrMiss = errors.New("token not cached")

// TokenCache stores token metadata by address.
type TokenCache interface {
	GetToken(ctx context.Context, address string) (model.TokenMeta, error)
	SetToken(ctx context.Context, meta model.TokenMeta) error
}

// MemoryTokenCache is an in-process TokenCache.
type MemoryTokenCache struct {
	mu   sync.RWMutex
	data map[string]model.TokenMeta
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{data: make(map[string]model.TokenMeta)}
}

func (c *MemoryTokenCache) GetToken(_ context.Context, address string) (model.TokenMeta, error) {
	c.mu.RLock()
	meta, ok := c.data[normalize(address)]
	c.mu.RUnlock()
	if !ok {
		return model.TokenMeta{}, ErrMiss
	}
	return meta, nil
}

func (c *MemoryTokenCache) SetToken(_ context.Context, meta model.TokenMeta) error {
	c.mu.Lock()
	c.data[normalize(meta.Address)] = meta
	c.mu.Unlock()
	return nil
}

// FetchFunc loads token metadata from its source of truth.
type FetchFunc func(ctx context.Context, address string) (model.TokenMeta, error)

// Resolver serves token metadata from a cache and falls back to fetch on a
// miss. Cache failures are logged and never fail the lookup.
type Resolver struct {
	cache  TokenCache
	fetch  FetchFunc
	logger *zap.Logger
}

func NewResolver(cache TokenCache, fetch FetchFunc, logger *zap.Logger) *Resolver {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cache: cache, fetch: fetch, logger: logger}
}

// Token returns metadata for address.
func (r *Resolver) Token(ctx context.Context, address string) (model.TokenMeta, error) {
	meta, err := r.cache.GetToken(ctx, address)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, ErrMiss) {
		r.logger.Warn("token cache read failed", zap.String("token", address), zap.Error(err))
	}
	if r.fetch == nil {
		return model.TokenMeta{}, ErrMiss
	}

	meta, err = r.fetch(ctx, address)
	if err != nil {
		return model.TokenMeta{}, err
	}
	if err := r.cache.SetToken(ctx, meta); err != nil {
		r.logger.Warn("token cache write failed", zap.String("token", address), zap.Error(err))
	}
	return meta, nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
