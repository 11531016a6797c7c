package loaders

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
)

const batchWait = 5 * time.Millisecond

// Loaders batches directory and emergency lookups made while building a view.
// Results are not cached; every view reads fresh rows.
type Loaders struct {
	ProfileLoader       *dataloader.Loader[string, *entities.Profile]
	FrontlineTypeLoader *dataloader.Loader[string, *entities.FrontlineType]
	EmergencyLoader     *dataloader.Loader[string, *entities.Emergency]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(
	profileRepo repositories.ProfileRepository,
	frontlineTypeRepo repositories.FrontlineTypeRepository,
	emergencyRepo repositories.EmergencyRepository,
) *Loaders {
	return &Loaders{
		ProfileLoader: newLoader("profile", profileRepo.GetByIDs, func(p *entities.Profile) string { return p.ID }),
		FrontlineTypeLoader: newLoader("frontline type", frontlineTypeRepo.GetByIDs, func(ft *entities.FrontlineType) string {
			return ft.ID
		}),
		EmergencyLoader: newLoader("emergency", emergencyRepo.GetByIDs, func(e *entities.Emergency) string { return e.ID }),
	}
}

func newLoader[V any](
	kind string,
	fetch func(ctx context.Context, ids []string) ([]V, error),
	idOf func(V) string,
) *dataloader.Loader[string, V] {
	batch := func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))
		items, err := fetch(ctx, keys)

		byID := make(map[string]V, len(items))
		if err == nil {
			for _, item := range items {
				byID[idOf(item)] = item
			}
		}

		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[V]{Error: err}
			} else if item, ok := byID[key]; ok {
				results[i] = &dataloader.Result[V]{Data: item}
			} else {
				results[i] = &dataloader.Result[V]{Error: fmt.Errorf("%s %s not found", kind, key)}
			}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batch,
		dataloader.WithCache[string, V](&dataloader.NoCache[string, V]{}),
		dataloader.WithWait[string, V](batchWait),
	)
}

// LoadFound resolves keys in one batch and returns only the ones that exist.
// Keys that fail to resolve are left out of the map.
func LoadFound[V any](ctx context.Context, loader *dataloader.Loader[string, V], keys []string) map[string]V {
	found := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return found
	}

	keys = unique(keys)
	data, errs := loader.LoadMany(ctx, keys)()
	for i, key := range keys {
		if errs != nil && errs[i] != nil {
			continue
		}
		found[key] = data[i]
	}
	return found
}

func unique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
