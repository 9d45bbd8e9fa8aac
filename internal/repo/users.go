package repo

import (
	"context"
	"strings"
	"sync"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
)

// Users is the store-facing repository for the user collection. The store
// itself is last-write-wins with no isolation, so every write goes through
// a single mutex: the ledger's single-user updates and the reward
// scheduler's bulk rewrite must not interleave.
type Users struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewUsers(store kvstore.Store) *Users {
	return &Users{store: store}
}

// All returns every user in insertion order.
func (r *Users) All(ctx context.Context) ([]models.User, error) {
	return kvstore.GetList[models.User](ctx, r.store, kvstore.KeyUsers)
}

// ByID returns the user with the given id, or (nil, nil) when absent.
func (r *Users) ByID(ctx context.Context, id string) (*models.User, error) {
	users, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// ByEmail returns the user with the given email (case-insensitive), or
// (nil, nil) when absent.
func (r *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Append adds a user to the end of the collection.
func (r *Users) Append(ctx context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.All(ctx)
	if err != nil {
		return err
	}
	users = append(users, u)
	return kvstore.SetList(ctx, r.store, kvstore.KeyUsers, users)
}

// Mutate applies fn to the user with the given id under the write lock and
// persists the whole collection. Returns (nil, nil) when the user does not
// exist; the update is silently skipped in that case.
func (r *Users) Mutate(ctx context.Context, id string, fn func(*models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		fn(&users[i])
		if err := kvstore.SetList(ctx, r.store, kvstore.KeyUsers, users); err != nil {
			return nil, err
		}
		u := users[i]
		return &u, nil
	}
	return nil, nil
}

// Rewrite applies fn to the whole collection under the write lock and
// persists the result. Used by the reward scheduler's bulk recompute.
func (r *Users) Rewrite(ctx context.Context, fn func([]models.User) []models.User) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	users = fn(users)
	if err := kvstore.SetList(ctx, r.store, kvstore.KeyUsers, users); err != nil {
		return nil, err
	}
	return users, nil
}
