package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Store keys used by the platform. Each list key holds a JSON array of one
// entity kind; KeySystemLastUpdate holds a scalar unix-millisecond stamp.
const (
	KeyUsers            = "st:users"
	KeyWebsites         = "st:websites"
	KeyRatings          = "st:ratings"
	KeyCampaigns        = "st:campaigns"
	KeySystemLastUpdate = "st:sys:last_update"
)

// Store is a persistent string key-value mapping with last-write-wins
// semantics and no transactions. An absent key reads as "".
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GetList reads and decodes the JSON list stored under key.
// An absent or empty key yields an empty slice.
func GetList[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("kvstore: decode list %q: %w", key, err)
	}
	return items, nil
}

// SetList overwrites the JSON list stored under key.
func SetList[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("kvstore: encode list %q: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// GetTime reads a unix-millisecond timestamp. Returns the zero time when
// the key is absent.
func GetTime(ctx context.Context, s Store, key string) (time.Time, error) {
	raw, err := s.Get(ctx, key)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("kvstore: parse timestamp %q: %w", key, err)
	}
	return time.UnixMilli(ms), nil
}

// SetTime stores a unix-millisecond timestamp.
func SetTime(ctx context.Context, s Store, key string, t time.Time) error {
	return s.Set(ctx, key, strconv.FormatInt(t.UnixMilli(), 10))
}
