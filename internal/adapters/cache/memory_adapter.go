package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
)

// MemoryAdapter implements CacheProvider on an in-process TTL cache
type MemoryAdapter struct {
	mu    sync.Mutex
	store *gocache.Cache
}

// NewMemoryAdapter creates an in-process cache
func NewMemoryAdapter() providers.CacheProvider {
	return &MemoryAdapter{store: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func ttl(expirationSeconds int) time.Duration {
	if expirationSeconds <= 0 {
		return gocache.NoExpiration
	}
	return time.Duration(expirationSeconds) * time.Second
}

func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := a.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	return v.([]byte), nil
}

func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	a.store.Set(key, value, ttl(expirationSeconds))
	return nil
}

func (a *MemoryAdapter) SetIfAbsent(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Add(key, value, ttl(expirationSeconds)); err != nil {
		return false, nil
	}
	return true, nil
}

func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.store.Delete(key)
	return nil
}

func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := a.store.Get(key)
	return ok, nil
}
