package repo

import (
	"context"
	"sync"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
)

// Websites is the store-facing repository for registered websites.
type Websites struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewWebsites(store kvstore.Store) *Websites {
	return &Websites{store: store}
}

func (r *Websites) All(ctx context.Context) ([]models.Website, error) {
	return kvstore.GetList[models.Website](ctx, r.store, kvstore.KeyWebsites)
}

// ByID returns the website with the given id, or (nil, nil) when absent.
func (r *Websites) ByID(ctx context.Context, id string) (*models.Website, error) {
	sites, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sites {
		if sites[i].ID == id {
			return &sites[i], nil
		}
	}
	return nil, nil
}

func (r *Websites) ByOwner(ctx context.Context, ownerID string) ([]models.Website, error) {
	sites, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Website, 0)
	for _, s := range sites {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Websites) Append(ctx context.Context, w models.Website) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sites, err := r.All(ctx)
	if err != nil {
		return err
	}
	sites = append(sites, w)
	return kvstore.SetList(ctx, r.store, kvstore.KeyWebsites, sites)
}

// Mutate applies fn to the website with the given id under the write lock.
// Returns (nil, nil) when the website does not exist.
func (r *Websites) Mutate(ctx context.Context, id string, fn func(*models.Website)) (*models.Website, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sites, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sites {
		if sites[i].ID != id {
			continue
		}
		fn(&sites[i])
		if err := kvstore.SetList(ctx, r.store, kvstore.KeyWebsites, sites); err != nil {
			return nil, err
		}
		w := sites[i]
		return &w, nil
	}
	return nil, nil
}
