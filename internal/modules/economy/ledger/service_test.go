package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/config"
	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
	"github.com/smarttraffic/core/internal/repo"
)

type fixture struct {
	svc      *Service
	users    *repo.Users
	websites *repo.Websites
	ratings  *repo.Ratings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kvstore.NewMemory()
	users := repo.NewUsers(store)
	websites := repo.NewWebsites(store)
	ratings := repo.NewRatings(store)

	economy := config.EconomyConfig{
		StartingCredits:  50,
		BaseCredits:      5,
		BasePoints:       10,
		TopContributorN:  10,
		BoostMultiplier:  1.5,
		RewardPeriodDays: 7,
	}
	svc := NewService(users, websites, ratings, economy, zap.NewNop())
	return &fixture{svc: svc, users: users, websites: websites, ratings: ratings}
}

func (f *fixture) seedUser(t *testing.T, u models.User) models.User {
	t.Helper()
	if u.ID == "" {
		u.ID = models.NewID()
	}
	if u.PointMultiplier == 0 {
		u.PointMultiplier = 1.0
	}
	require.NoError(t, f.users.Append(context.Background(), u))
	return u
}

func (f *fixture) seedWebsite(t *testing.T, w models.Website) models.Website {
	t.Helper()
	if w.ID == "" {
		w.ID = models.NewID()
	}
	require.NoError(t, f.websites.Append(context.Background(), w))
	return w
}

func (f *fixture) userByID(t *testing.T, id string) models.User {
	t.Helper()
	u, err := f.users.ByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return *u
}

func atTime(f *fixture, t time.Time) { f.svc.now = func() time.Time { return t } }

func TestAddRatingFirstActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, models.User{Name: "owner", Role: models.RoleOwner, Credits: 50})
	rater := f.seedUser(t, models.User{Name: "rater", Role: models.RoleGenerator, Credits: 50})
	site := f.seedWebsite(t, models.Website{OwnerID: owner.ID, URL: "https://a.example"})

	atTime(f, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC))
	rating, err := f.svc.AddRating(ctx, rater.ID, site.ID, 4, "solid", 42)
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.Equal(t, 4, rating.Score)

	got := f.userByID(t, rater.ID)
	assert.Equal(t, 1, got.StreakDays)
	assert.Equal(t, 55, got.Credits) // 50 + base 5, no streak bonus yet
	assert.Equal(t, 10, got.Points)
	require.NotNil(t, got.LastActiveAt)

	gotOwner := f.userByID(t, owner.ID)
	assert.Equal(t, 49, gotOwner.Credits)

	gotSite, err := f.websites.ByID(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotSite.TotalVisits)
	assert.InDelta(t, 4.0, gotSite.AverageRating, 1e-9)
}

func TestAddRatingStreakProgression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, models.User{Role: models.RoleOwner, Credits: 10})
	rater := f.seedUser(t, models.User{Role: models.RoleGenerator, Credits: 0})
	site := f.seedWebsite(t, models.Website{OwnerID: owner.ID})

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	atTime(f, day1)
	_, err := f.svc.AddRating(ctx, rater.ID, site.ID, 5, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.userByID(t, rater.ID).StreakDays)

	// Same calendar day: streak unchanged.
	atTime(f, day1.Add(10*time.Hour))
	_, err = f.svc.AddRating(ctx, rater.ID, site.ID, 5, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.userByID(t, rater.ID).StreakDays)

	// Next calendar day: streak extends.
	atTime(f, day1.AddDate(0, 0, 1))
	_, err = f.svc.AddRating(ctx, rater.ID, site.ID, 5, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f.userByID(t, rater.ID).StreakDays)

	// Two-day gap: streak resets.
	atTime(f, day1.AddDate(0, 0, 3))
	_, err = f.svc.AddRating(ctx, rater.ID, site.ID, 5, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.userByID(t, rater.ID).StreakDays)
}

func TestAddRatingStreakBonusCaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, models.User{Role: models.RoleOwner, Credits: 10})
	site := f.seedWebsite(t, models.Website{OwnerID: owner.ID})

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	// Streak reaches 10 on this rating: bonus is 10/5 = 2.
	midStreak := f.seedUser(t, models.User{
		Role: models.RoleGenerator, Credits: 0, StreakDays: 9, LastActiveAt: &yesterday,
	})
	// Streak reaches 40: bonus is capped at 5.
	longStreak := f.seedUser(t, models.User{
		Role: models.RoleGenerator, Credits: 0, StreakDays: 39, LastActiveAt: &yesterday,
	})

	atTime(f, now)
	_, err := f.svc.AddRating(ctx, midStreak.ID, site.ID, 3, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, f.userByID(t, midStreak.ID).Credits)

	_, err = f.svc.AddRating(ctx, longStreak.ID, site.ID, 3, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, f.userByID(t, longStreak.ID).Credits)
}

func TestAddRatingMultiplierAppliesAtEarnTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, models.User{Role: models.RoleOwner, Credits: 10})
	boosted := f.seedUser(t, models.User{
		Role: models.RoleGenerator, PointMultiplier: 1.5, IsTopContributor: true,
	})
	site := f.seedWebsite(t, models.Website{OwnerID: owner.ID})

	atTime(f, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err := f.svc.AddRating(ctx, boosted.ID, site.ID, 5, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 15, f.userByID(t, boosted.ID).Points)
}

func TestAddRatingOwnerDebitFlooredAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, models.User{Role: models.RoleOwner, Credits: 0})
	rater := f.seedUser(t, models.User{Role: models.RoleGenerator})
	site := f.seedWebsite(t, models.Website{OwnerID: owner.ID})

	atTime(f, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err := f.svc.AddRating(ctx, rater.ID, site.ID, 2, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, f.userByID(t, owner.ID).Credits)
}

func TestAddRatingRollingAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, models.User{Role: models.RoleOwner, Credits: 100})
	rater := f.seedUser(t, models.User{Role: models.RoleGenerator})
	site := f.seedWebsite(t, models.Website{OwnerID: owner.ID})

	atTime(f, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err := f.svc.AddRating(ctx, rater.ID, site.ID, 4, "", 0)
	require.NoError(t, err)
	_, err = f.svc.AddRating(ctx, rater.ID, site.ID, 2, "", 0)
	require.NoError(t, err)

	got, err := f.websites.ByID(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalVisits)
	assert.InDelta(t, 3.0, got.AverageRating, 1e-9)
}

func TestAddRatingUnknownWebsiteStillRecordsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rater := f.seedUser(t, models.User{Role: models.RoleGenerator})

	atTime(f, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	rating, err := f.svc.AddRating(ctx, rater.ID, "missing", 3, "", 0)
	require.NoError(t, err)
	require.NotNil(t, rating)

	all, err := f.ratings.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// The rater still earns; only the website-side update is skipped.
	assert.Equal(t, 10, f.userByID(t, rater.ID).Points)
}
