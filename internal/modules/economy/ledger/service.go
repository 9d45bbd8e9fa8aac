package ledger

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/config"
	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/repo"
)

// Service is the rating ledger. Every visit-rate cycle flows through
// AddRating, which appends the immutable rating event and derives the
// rater's credit/point/streak deltas plus the website's rolling aggregate.
type Service struct {
	users    *repo.Users
	websites *repo.Websites
	ratings  *repo.Ratings
	economy  config.EconomyConfig
	log      *zap.Logger

	now func() time.Time
}

func NewService(users *repo.Users, websites *repo.Websites, ratings *repo.Ratings, economy config.EconomyConfig, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		websites: websites,
		ratings:  ratings,
		economy:  economy,
		log:      log,
		now:      time.Now,
	}
}

// AddRating records a rating and applies the derived economy mutations in
// order: append the event, update the rater, update the website and debit
// its owner. A missing rater or website skips that update silently; store
// failures propagate.
func (s *Service) AddRating(ctx context.Context, userID, websiteID string, score int, feedback string, dwellSeconds int) (*models.Rating, error) {
	now := s.now()

	rating := models.Rating{
		ID:               models.NewID(),
		UserID:           userID,
		WebsiteID:        websiteID,
		Score:            score,
		Feedback:         feedback,
		DwellTimeSeconds: dwellSeconds,
		CreatedAt:        now,
	}
	if err := s.ratings.Append(ctx, rating); err != nil {
		return nil, err
	}

	rater, err := s.users.Mutate(ctx, userID, func(u *models.User) {
		applyStreak(u, now)
		u.Credits += s.creditsEarned(u.StreakDays)
		u.Points += s.pointsEarned(u.PointMultiplier)
	})
	if err != nil {
		return nil, err
	}
	if rater == nil {
		s.log.Warn("rating from unknown user", zap.String("user_id", userID))
	}

	site, err := s.websites.Mutate(ctx, websiteID, func(w *models.Website) {
		w.AverageRating = (w.AverageRating*float64(w.TotalVisits) + float64(score)) / float64(w.TotalVisits+1)
		w.TotalVisits++
	})
	if err != nil {
		return nil, err
	}
	if site == nil {
		s.log.Warn("rating for unknown website", zap.String("website_id", websiteID))
		return &rating, nil
	}

	// The visit costs the owner one credit, floored at zero.
	if _, err := s.users.Mutate(ctx, site.OwnerID, func(u *models.User) {
		if u.Credits > 0 {
			u.Credits--
		}
	}); err != nil {
		return nil, err
	}

	return &rating, nil
}

// ForUser returns the caller's rating history.
func (s *Service) ForUser(ctx context.Context, userID string) ([]models.Rating, error) {
	return s.ratings.ByUser(ctx, userID)
}

// ForWebsite returns a website's ratings, newest first.
func (s *Service) ForWebsite(ctx context.Context, websiteID string) ([]models.Rating, error) {
	return s.ratings.ByWebsite(ctx, websiteID)
}

// creditsEarned is the per-rating credit grant: a flat base plus a streak
// bonus of one credit per five streak days, capped at five.
func (s *Service) creditsEarned(streakDays int) int {
	bonus := streakDays / 5
	if bonus > 5 {
		bonus = 5
	}
	return s.economy.BaseCredits + bonus
}

func (s *Service) pointsEarned(multiplier float64) int {
	return int(math.Round(float64(s.economy.BasePoints) * multiplier))
}

// applyStreak advances the activity streak using UTC calendar days: same
// day leaves it unchanged, the day after the last activity extends it,
// anything else starts over at one.
func applyStreak(u *models.User, now time.Time) {
	defer func() {
		t := now
		u.LastActiveAt = &t
	}()

	if u.LastActiveAt == nil {
		u.StreakDays = 1
		return
	}

	lastDay := utcDay(*u.LastActiveAt)
	today := utcDay(now)
	switch {
	case today.Equal(lastDay):
		// already counted today
	case today.Equal(lastDay.AddDate(0, 0, 1)):
		u.StreakDays++
	default:
		u.StreakDays = 1
	}
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
