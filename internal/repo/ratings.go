package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
)

// Ratings is the append-only store-facing repository for rating events.
type Ratings struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewRatings(store kvstore.Store) *Ratings {
	return &Ratings{store: store}
}

func (r *Ratings) All(ctx context.Context) ([]models.Rating, error) {
	return kvstore.GetList[models.Rating](ctx, r.store, kvstore.KeyRatings)
}

// Append records a rating event. No dedup: every visit-rate cycle counts.
func (r *Ratings) Append(ctx context.Context, rating models.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ratings, err := r.All(ctx)
	if err != nil {
		return err
	}
	ratings = append(ratings, rating)
	return kvstore.SetList(ctx, r.store, kvstore.KeyRatings, ratings)
}

func (r *Ratings) ByUser(ctx context.Context, userID string) ([]models.Rating, error) {
	ratings, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Rating, 0)
	for _, rt := range ratings {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out, nil
}

// ByWebsite returns a site's ratings, newest first.
func (r *Ratings) ByWebsite(ctx context.Context, websiteID string) ([]models.Rating, error) {
	ratings, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Rating, 0)
	for _, rt := range ratings {
		if rt.WebsiteID == websiteID {
			out = append(out, rt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
