// Package correlation mints single-use reminder tokens and resolves replies
// carrying them back to exactly one history entry.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/application/ledger"
	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/pkg/token"
)

type Service interface {
	IssueToken() (string, error)
	// Resolve applies status to the entry holding tok and consumes the token.
	// Unknown or already consumed tokens fail with domain.ErrTokenNotFound.
	Resolve(ctx context.Context, tok, status, reason string) (domain.TiffinEntry, error)
}

type service struct {
	ledger *ledger.Ledger
	log    logrus.FieldLogger
}

func NewService(l *ledger.Ledger, log logrus.FieldLogger) Service {
	return &service{ledger: l, log: log}
}

func (s *service) IssueToken() (string, error) {
	return token.NewNotificationToken()
}

func (s *service) Resolve(ctx context.Context, tok, status, reason string) (domain.TiffinEntry, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return domain.TiffinEntry{}, fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	st, ok := domain.ParseReplyStatus(status)
	if !ok {
		return domain.TiffinEntry{}, fmt.Errorf("status must be taken or skipped: %w", domain.ErrBadRequest)
	}

	userID, err := s.ledger.OwnerOfToken(ctx, tok)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TiffinEntry{}, domain.ErrTokenNotFound
	}
	if err != nil {
		return domain.TiffinEntry{}, err
	}

	var entry domain.TiffinEntry
	_, err = s.ledger.Update(ctx, userID, func(u *domain.User) (bool, error) {
		// The index row may be stale if the entry was consumed between lookup and lock.
		e := u.EntryByToken(tok)
		if e == nil {
			return false, domain.ErrTokenNotFound
		}
		e.Apply(st, reason)
		entry = *e
		return true, nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TiffinEntry{}, domain.ErrTokenNotFound
	}
	if err != nil {
		return domain.TiffinEntry{}, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"date":    entry.Date,
		"time":    entry.Time,
		"status":  entry.Status,
	}).Info("reminder answered")
	return entry, nil
}
