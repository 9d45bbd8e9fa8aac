package rewards

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/config"
	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
	"github.com/smarttraffic/core/internal/repo"
)

// Service maintains the weekly top-contributor designation. The recompute
// is a full rewrite of the user collection, guarded by a single persisted
// period stamp.
type Service struct {
	users   *repo.Users
	store   kvstore.Store
	economy config.EconomyConfig
	log     *zap.Logger

	now func() time.Time
}

func NewService(users *repo.Users, store kvstore.Store, economy config.EconomyConfig, log *zap.Logger) *Service {
	return &Service{
		users:   users,
		store:   store,
		economy: economy,
		log:     log,
		now:     time.Now,
	}
}

// CheckAndRun recomputes the top-contributor set when a full reward period
// has elapsed since the last run. The first ever call just initializes the
// period stamp.
func (s *Service) CheckAndRun(ctx context.Context) error {
	last, err := kvstore.GetTime(ctx, s.store, kvstore.KeySystemLastUpdate)
	if err != nil {
		return err
	}
	now := s.now()

	if last.IsZero() {
		return kvstore.SetTime(ctx, s.store, kvstore.KeySystemLastUpdate, now)
	}
	if now.Sub(last) <= time.Duration(s.economy.RewardPeriodDays)*24*time.Hour {
		return nil
	}

	return s.Trigger(ctx)
}

// Trigger performs the full recompute unconditionally and starts a fresh
// reward period. Generators are ranked by points descending; ties break
// by earlier registration, then by id. The first N with points above zero
// become top contributors with the boosted multiplier, everyone else
// drops back to 1.0.
func (s *Service) Trigger(ctx context.Context) error {
	now := s.now()
	_, err := s.users.Rewrite(ctx, func(users []models.User) []models.User {
		top := topContributorIDs(users, s.economy.TopContributorN)

		for i := range users {
			if users[i].Role != models.RoleGenerator {
				continue
			}
			if _, ok := top[users[i].ID]; ok {
				users[i].IsTopContributor = true
				users[i].PointMultiplier = s.economy.BoostMultiplier
			} else {
				users[i].IsTopContributor = false
				users[i].PointMultiplier = 1.0
			}
			stamp := now
			users[i].LastWeeklyUpdate = &stamp
		}
		s.log.Info("weekly rewards recomputed", zap.Int("top_contributors", len(top)))
		return users
	})
	if err != nil {
		return err
	}
	// A manual trigger also restarts the period, so the next scheduled
	// check does not recompute again right away.
	return kvstore.SetTime(ctx, s.store, kvstore.KeySystemLastUpdate, now)
}

// Schedule reports the last recompute stamp and when the next one is due.
// A zero LastUpdate means no period has started yet.
func (s *Service) Schedule(ctx context.Context) (last, next time.Time, err error) {
	last, err = kvstore.GetTime(ctx, s.store, kvstore.KeySystemLastUpdate)
	if err != nil || last.IsZero() {
		return last, time.Time{}, err
	}
	return last, last.Add(time.Duration(s.economy.RewardPeriodDays) * 24 * time.Hour), nil
}

// Leaderboard returns generators ranked by the same ordering the reward
// recompute uses, truncated to limit.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.PublicUser, error) {
	users, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	generators := rankedGenerators(users)
	if limit > 0 && len(generators) > limit {
		generators = generators[:limit]
	}
	out := make([]models.PublicUser, 0, len(generators))
	for _, g := range generators {
		out = append(out, g.Public())
	}
	return out, nil
}

func rankedGenerators(users []models.User) []models.User {
	generators := make([]models.User, 0)
	for _, u := range users {
		if u.Role == models.RoleGenerator {
			generators = append(generators, u)
		}
	}
	sort.SliceStable(generators, func(i, j int) bool {
		a, b := generators[i], generators[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return generators
}

func topContributorIDs(users []models.User, n int) map[string]struct{} {
	top := make(map[string]struct{}, n)
	for _, g := range rankedGenerators(users) {
		if len(top) >= n {
			break
		}
		if g.Points <= 0 {
			// Ranking is points-descending, so nothing below qualifies.
			break
		}
		top[g.ID] = struct{}{}
	}
	return top
}
