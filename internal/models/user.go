package models

import "time"

// Role separates the two sides of the marketplace.
type Role string

const (
	RoleOwner     Role = "OWNER"     // operates websites, spends credits on received visits
	RoleGenerator Role = "GENERATOR" // discovers and rates websites, earns credits and points
)

// User is a marketplace participant. Economy fields (credits, points,
// streak) are mutated only by the rating ledger and the reward scheduler.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
	Role         Role   `json:"role"`

	Credits         int     `json:"credits"`
	Points          int     `json:"points"`
	PointMultiplier float64 `json:"point_multiplier"`

	StreakDays   int        `json:"streak_days"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	IsTopContributor bool       `json:"is_top_contributor"`
	LastWeeklyUpdate *time.Time `json:"last_weekly_update,omitempty"`

	// Generator affinity profile, used by the matching feed.
	Interests []string `json:"interests,omitempty"`

	ReferralCode string    `json:"referral_code"`
	CreatedAt    time.Time `json:"created"`
}

// PublicUser is the API projection of a User without credential material.
type PublicUser struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             Role       `json:"role"`
	Credits          int        `json:"credits"`
	Points           int        `json:"points"`
	PointMultiplier  float64    `json:"point_multiplier"`
	StreakDays       int        `json:"streak_days"`
	LastActiveAt     *time.Time `json:"last_active_at,omitempty"`
	IsTopContributor bool       `json:"is_top_contributor"`
	Interests        []string   `json:"interests,omitempty"`
	ReferralCode     string     `json:"referral_code"`
	CreatedAt        time.Time  `json:"created"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		Credits:          u.Credits,
		Points:           u.Points,
		PointMultiplier:  u.PointMultiplier,
		StreakDays:       u.StreakDays,
		LastActiveAt:     u.LastActiveAt,
		IsTopContributor: u.IsTopContributor,
		Interests:        u.Interests,
		ReferralCode:     u.ReferralCode,
		CreatedAt:        u.CreatedAt,
	}
}
