// Package ledger is the single writer for user documents. Every change to a
// user's settings, subscription or history goes through Update, which
// serialises writers for the same user in-process and retries on optimistic
// version conflicts from other processes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/pkg/keylock"
)

// Store is the durable document store. Save must fail with domain.ErrConflict
// when the stored version differs from prevVersion, and must apply the token
// index change atomically with the document write.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Save(ctx context.Context, u *domain.User, prevVersion int64, change domain.TokenChange) error
	OwnerOfToken(ctx context.Context, token string) (string, error)
}

// Mutation edits u in place and reports whether anything changed.
// It may run more than once when a write conflicts, always on a fresh copy.
type Mutation func(u *domain.User) (changed bool, err error)

type Ledger struct {
	store   Store
	locks   *keylock.Locks
	retries int
	log     logrus.FieldLogger
	now     func() time.Time
}

func New(store Store, retries int, log logrus.FieldLogger) *Ledger {
	if retries < 1 {
		retries = 1
	}
	return &Ledger{
		store:   store,
		locks:   keylock.New(),
		retries: retries,
		log:     log,
		now:     time.Now,
	}
}

func (l *Ledger) Get(ctx context.Context, userID string) (*domain.User, error) {
	return l.store.Get(ctx, userID)
}

// OwnerOfToken resolves a live token to the id of the user holding it.
func (l *Ledger) OwnerOfToken(ctx context.Context, token string) (string, error) {
	return l.store.OwnerOfToken(ctx, token)
}

// Update runs fn against the latest copy of the user and persists the result.
// Returns the user as stored after the call.
func (l *Ledger) Update(ctx context.Context, userID string, fn Mutation) (*domain.User, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		u, err := l.store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		before := u.Tokens()
		prev := u.Version

		changed, err := fn(u)
		if err != nil {
			return nil, err
		}
		if !changed {
			return u, nil
		}

		u.Version = prev + 1
		u.UpdatedAt = l.now().UTC()
		err = l.store.Save(ctx, u, prev, domain.DiffTokens(before, u.Tokens()))
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		if attempt >= l.retries {
			return nil, fmt.Errorf("update user %s after %d attempts: %w", userID, attempt, err)
		}
		l.log.WithFields(logrus.Fields{"user_id": userID, "attempt": attempt}).Debug("user write conflicted, retrying")
	}
}
