package database

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
)

// frontlineTypesKey holds the whole list; the table is small and rarely edited
const frontlineTypesKey = "frontline_types:all"

// Cache TTL (in seconds)
const frontlineTypesTTL = 600

// CachedFrontlineTypeAdapter wraps a FrontlineTypeRepository with caching
type CachedFrontlineTypeAdapter struct {
	adapter repositories.FrontlineTypeRepository
	cache   providers.CacheProvider
}

// NewCachedFrontlineTypeAdapter creates a new cached frontline type adapter
func NewCachedFrontlineTypeAdapter(adapter repositories.FrontlineTypeRepository, cache providers.CacheProvider) repositories.FrontlineTypeRepository {
	return &CachedFrontlineTypeAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// List retrieves all frontline types, from cache when possible
func (a *CachedFrontlineTypeAdapter) List(ctx context.Context) ([]*entities.FrontlineType, error) {
	if cached, err := a.cache.Get(ctx, frontlineTypesKey); err == nil {
		var types []*entities.FrontlineType
		uerr := json.Unmarshal(cached, &types)
		if uerr == nil {
			return types, nil
		}
		log.Warn().Err(uerr).Msg("Failed to unmarshal cached frontline types")
	}

	types, err := a.adapter.List(ctx)
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	go func() {
		data, err := json.Marshal(types)
		if err != nil {
			return
		}
		if err := a.cache.Set(context.Background(), frontlineTypesKey, data, frontlineTypesTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache frontline types")
		}
	}()

	return types, nil
}

// GetByIDs answers from the cached list and falls through to the database
// when any id is missing from it
func (a *CachedFrontlineTypeAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.FrontlineType, error) {
	if len(ids) == 0 {
		return []*entities.FrontlineType{}, nil
	}

	cached, err := a.cache.Get(ctx, frontlineTypesKey)
	if err == nil {
		var all []*entities.FrontlineType
		if err := json.Unmarshal(cached, &all); err == nil {
			byID := make(map[string]*entities.FrontlineType, len(all))
			for _, ft := range all {
				byID[ft.ID] = ft
			}
			result := make([]*entities.FrontlineType, 0, len(ids))
			for _, id := range ids {
				ft, ok := byID[id]
				if !ok {
					return a.adapter.GetByIDs(ctx, ids)
				}
				result = append(result, ft)
			}
			return result, nil
		}
	}

	return a.adapter.GetByIDs(ctx, ids)
}

// Invalidate drops the cached list so the next read hits the database
func (a *CachedFrontlineTypeAdapter) Invalidate(ctx context.Context) error {
	return a.cache.Delete(ctx, frontlineTypesKey)
}
