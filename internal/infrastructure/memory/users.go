// Package memory is a process-local user store with the same write contract
// as the DynamoDB repository. It backs STORE_BACKEND=memory and the
// application tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tiffin-tracker/internal/domain"
)

type UserRepo struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	tokens map[string]domain.TokenRef
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:  map[string]*domain.User{},
		tokens: map[string]domain.TokenRef{},
	}
}

// Put stores u as-is, replacing any previous document and rebuilding its
// token rows. Used for seeding.
func (r *UserRepo) Put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.users[u.UserID]; ok {
		for tok := range old.Tokens() {
			delete(r.tokens, tok)
		}
	}
	c := u.Clone()
	r.users[u.UserID] = c
	for tok, ref := range c.Tokens() {
		r.tokens[tok] = ref
	}
}

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return u.Clone(), nil
}

func (r *UserRepo) Save(_ context.Context, u *domain.User, prevVersion int64, change domain.TokenChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[u.UserID]
	if !ok {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrNotFound)
	}
	if cur.Version != prevVersion {
		return fmt.Errorf("user %s at version %d, expected %d: %w", u.UserID, cur.Version, prevVersion, domain.ErrConflict)
	}
	for _, ref := range change.Added {
		if _, taken := r.tokens[ref.Token]; taken {
			return fmt.Errorf("token collision: %w", domain.ErrConflict)
		}
	}

	for _, tok := range change.Removed {
		delete(r.tokens, tok)
	}
	for _, ref := range change.Added {
		r.tokens[ref.Token] = ref
	}
	r.users[u.UserID] = u.Clone()
	return nil
}

func (r *UserRepo) OwnerOfToken(_ context.Context, token string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.tokens[token]
	if !ok {
		return "", fmt.Errorf("token: %w", domain.ErrNotFound)
	}
	return ref.UserID, nil
}

// ListEligible returns copies of every eligible user ordered by id.
func (r *UserRepo) ListEligible(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Eligible() {
			out = append(out, *u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
