package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smarttraffic/core/internal/models"
	redisc "github.com/smarttraffic/core/internal/pkg/redis"
)

const (
	keyPrefix = "st:session:"

	// TTL slides forward on Touch, so an active client never expires.
	TTL = 30 * 24 * time.Hour
)

// Session is the server-side record behind an issued token. Tokens are
// only valid while their session exists; deleting the session revokes
// the token without waiting for JWT expiry.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func key(id string) string { return keyPrefix + id }

// Create stores a new session for the user and returns it.
func Create(ctx context.Context, rds *redisc.Client, userID string) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:         models.NewID(),
		UserID:     userID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := save(ctx, rds, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get loads a session, or (nil, nil) when it does not exist or expired.
func Get(ctx context.Context, rds *redisc.Client, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	raw, err := rds.Get(ctx, key(id))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch refreshes LastSeenAt and slides the TTL forward.
func Touch(ctx context.Context, rds *redisc.Client, id string) {
	s, err := Get(ctx, rds, id)
	if err != nil || s == nil {
		return
	}
	s.LastSeenAt = time.Now()
	_ = save(ctx, rds, s)
}

// Revoke deletes the session, invalidating its token immediately.
func Revoke(ctx context.Context, rds *redisc.Client, id string) error {
	if id == "" {
		return nil
	}
	return rds.Del(ctx, key(id))
}

func save(ctx context.Context, rds *redisc.Client, s *Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return rds.Set(ctx, key(s.ID), payload, TTL)
}
