package rewards

import (
	"context"
	"fmt"
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

func newService(t *testing.T) (*Service, *repo.Users, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemory()
	users := repo.NewUsers(store)
	economy := config.EconomyConfig{
		StartingCredits:  50,
		BaseCredits:      5,
		BasePoints:       10,
		TopContributorN:  10,
		BoostMultiplier:  1.5,
		RewardPeriodDays: 7,
	}
	return NewService(users, store, economy, zap.NewNop()), users, store
}

func seedGenerator(t *testing.T, users *repo.Users, points int, createdAt time.Time) models.User {
	t.Helper()
	u := models.User{
		ID:              models.NewID(),
		Name:            fmt.Sprintf("gen-%d", points),
		Role:            models.RoleGenerator,
		Points:          points,
		PointMultiplier: 1.0,
		CreatedAt:       createdAt,
	}
	require.NoError(t, users.Append(context.Background(), u))
	return u
}

func TestTriggerSelectsTopContributors(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	leader := seedGenerator(t, users, 100, base)
	var others []models.User
	for i := 0; i < 9; i++ {
		others = append(others, seedGenerator(t, users, 10+i, base.Add(time.Duration(i+1)*time.Hour)))
	}
	zeroPoints := seedGenerator(t, users, 0, base)

	owner := models.User{ID: models.NewID(), Role: models.RoleOwner, Points: 9999, PointMultiplier: 1.0}
	require.NoError(t, users.Append(ctx, owner))

	require.NoError(t, svc.Trigger(ctx))

	got, err := users.ByID(ctx, leader.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTopContributor)
	assert.Equal(t, 1.5, got.PointMultiplier)

	for _, o := range others {
		g, err := users.ByID(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, g.IsTopContributor, "generator with positive points inside top 10")
	}

	// Zero points never qualifies, even with open slots.
	gz, err := users.ByID(ctx, zeroPoints.ID)
	require.NoError(t, err)
	assert.False(t, gz.IsTopContributor)
	assert.Equal(t, 1.0, gz.PointMultiplier)

	// Owners are outside the leaderboard entirely.
	go1, err := users.ByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, go1.IsTopContributor)
}

func TestTriggerDemotesPreviousWinners(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	former := models.User{
		ID: models.NewID(), Role: models.RoleGenerator,
		Points: 0, PointMultiplier: 1.5, IsTopContributor: true,
		CreatedAt: base,
	}
	require.NoError(t, users.Append(ctx, former))

	require.NoError(t, svc.Trigger(ctx))

	got, err := users.ByID(ctx, former.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTopContributor)
	assert.Equal(t, 1.0, got.PointMultiplier)
}

func TestTriggerIdempotent(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base.AddDate(0, 0, 7) }

	for i := 0; i < 15; i++ {
		seedGenerator(t, users, 100-i, base.Add(time.Duration(i)*time.Minute))
	}

	require.NoError(t, svc.Trigger(ctx))
	first, err := users.All(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Trigger(ctx))
	second, err := users.All(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTriggerCutoffTiebreakByRegistration(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Nine clear winners, then two tied on points fighting for the last slot.
	for i := 0; i < 9; i++ {
		seedGenerator(t, users, 1000-i, base)
	}
	earlier := seedGenerator(t, users, 50, base.Add(1*time.Hour))
	later := seedGenerator(t, users, 50, base.Add(2*time.Hour))

	require.NoError(t, svc.Trigger(ctx))

	ge, err := users.ByID(ctx, earlier.ID)
	require.NoError(t, err)
	assert.True(t, ge.IsTopContributor)

	gl, err := users.ByID(ctx, later.ID)
	require.NoError(t, err)
	assert.False(t, gl.IsTopContributor)
}

func TestTriggerStampsGeneratorsAndRestartsPeriod(t *testing.T) {
	svc, users, store := newService(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g := seedGenerator(t, users, 100, now.AddDate(0, 0, -30))
	// Period is almost due when the manual trigger lands.
	require.NoError(t, kvstore.SetTime(ctx, store, kvstore.KeySystemLastUpdate, now.AddDate(0, 0, -6)))

	require.NoError(t, svc.Trigger(ctx))

	got, err := users.ByID(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastWeeklyUpdate)
	assert.True(t, got.LastWeeklyUpdate.Equal(now), "each generator carries the recompute stamp")

	stamp, err := kvstore.GetTime(ctx, store, kvstore.KeySystemLastUpdate)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(now), "manual trigger restarts the period")

	// The next scheduled check sees a fresh period and does not recompute.
	_, err = users.Mutate(ctx, g.ID, func(u *models.User) { u.Points = 0 })
	require.NoError(t, err)
	svc.now = func() time.Time { return now.AddDate(0, 0, 2) }
	require.NoError(t, svc.CheckAndRun(ctx))

	got, err = users.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTopContributor, "no early recompute after a manual trigger")
}

func TestCheckAndRunInitializesStampWithoutRecompute(t *testing.T) {
	svc, users, store := newService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g := seedGenerator(t, users, 100, now.AddDate(0, 0, -30))

	require.NoError(t, svc.CheckAndRun(ctx))

	stamp, err := kvstore.GetTime(ctx, store, kvstore.KeySystemLastUpdate)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(now))

	got, err := users.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTopContributor, "first run only initializes the stamp")
}

func TestCheckAndRunRespectsPeriod(t *testing.T) {
	svc, users, store := newService(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	g := seedGenerator(t, users, 100, start.AddDate(0, 0, -30))
	require.NoError(t, kvstore.SetTime(ctx, store, kvstore.KeySystemLastUpdate, start))

	// Six days in: nothing happens.
	svc.now = func() time.Time { return start.AddDate(0, 0, 6) }
	require.NoError(t, svc.CheckAndRun(ctx))
	got, err := users.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTopContributor)

	// Past seven days: recompute runs and the stamp resets.
	after := start.AddDate(0, 0, 8)
	svc.now = func() time.Time { return after }
	require.NoError(t, svc.CheckAndRun(ctx))

	got, err = users.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTopContributor)

	stamp, err := kvstore.GetTime(ctx, store, kvstore.KeySystemLastUpdate)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(after))
}
