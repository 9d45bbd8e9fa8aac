package repo

import (
	"context"
	"sync"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
)

// Campaigns is the store-facing repository for finished campaign records.
// History is retained; "latest per website" is resolved by max timestamp.
type Campaigns struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewCampaigns(store kvstore.Store) *Campaigns {
	return &Campaigns{store: store}
}

func (r *Campaigns) All(ctx context.Context) ([]models.Campaign, error) {
	return kvstore.GetList[models.Campaign](ctx, r.store, kvstore.KeyCampaigns)
}

// Save upserts a campaign by id.
func (r *Campaigns) Save(ctx context.Context, c models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	campaigns, err := r.All(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range campaigns {
		if campaigns[i].ID == c.ID {
			campaigns[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		campaigns = append(campaigns, c)
	}
	return kvstore.SetList(ctx, r.store, kvstore.KeyCampaigns, campaigns)
}

// LatestByWebsite returns the newest campaign for a website, or (nil, nil).
func (r *Campaigns) LatestByWebsite(ctx context.Context, websiteID string) (*models.Campaign, error) {
	campaigns, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var latest *models.Campaign
	for i := range campaigns {
		if campaigns[i].WebsiteID != websiteID {
			continue
		}
		if latest == nil || campaigns[i].CreatedAt.After(latest.CreatedAt) {
			latest = &campaigns[i]
		}
	}
	return latest, nil
}

func (r *Campaigns) ByWebsite(ctx context.Context, websiteID string) ([]models.Campaign, error) {
	campaigns, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Campaign, 0)
	for _, c := range campaigns {
		if c.WebsiteID == websiteID {
			out = append(out, c)
		}
	}
	return out, nil
}
