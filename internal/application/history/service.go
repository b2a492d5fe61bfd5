package history

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/application/ledger"
	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/pkg/localclock"
)

// Issuer mints reminder tokens.
type Issuer interface {
	IssueToken() (string, error)
}

// Dashboard is the authenticated user's view of their settings and history.
type Dashboard struct {
	Settings domain.Settings       `json:"settings"`
	History  []domain.MonthSummary `json:"history_with_stats"`
}

type Service interface {
	// EnsureEntry returns the entry for (date, time), creating a pending one
	// with a fresh token attached in the same write when none exists.
	EnsureEntry(ctx context.Context, userID, date, tm string) (domain.TiffinEntry, bool, error)
	// UpdateStatus records a status without a token, creating the entry if needed.
	UpdateStatus(ctx context.Context, userID, date, tm string, status domain.Status, reason string) (domain.TiffinEntry, error)
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
}

type service struct {
	ledger *ledger.Ledger
	issuer Issuer
	log    logrus.FieldLogger
}

func NewService(l *ledger.Ledger, issuer Issuer, log logrus.FieldLogger) Service {
	return &service{ledger: l, issuer: issuer, log: log}
}

func (s *service) EnsureEntry(ctx context.Context, userID, date, tm string) (domain.TiffinEntry, bool, error) {
	var (
		entry   domain.TiffinEntry
		created bool
	)
	_, err := s.ledger.Update(ctx, userID, func(u *domain.User) (bool, error) {
		e, isNew := u.EnsureEntry(date, tm)
		created = isNew
		if isNew {
			tok, err := s.issuer.IssueToken()
			if err != nil {
				return false, err
			}
			e.NotificationToken = tok
		}
		entry = *e
		return isNew, nil
	})
	if err != nil {
		return domain.TiffinEntry{}, false, err
	}
	if created {
		s.log.WithFields(logrus.Fields{"user_id": userID, "date": date, "time": tm}).Debug("entry created")
	}
	return entry, created, nil
}

func (s *service) UpdateStatus(ctx context.Context, userID, date, tm string, status domain.Status, reason string) (domain.TiffinEntry, error) {
	if !localclock.ValidDate(date) {
		return domain.TiffinEntry{}, fmt.Errorf("date %q: %w", date, domain.ErrBadRequest)
	}
	h, m, err := localclock.ParseHHMM(tm)
	if err != nil {
		return domain.TiffinEntry{}, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	tm = localclock.FormatHHMM(h, m)
	if status != domain.StatusTaken && status != domain.StatusSkipped {
		return domain.TiffinEntry{}, fmt.Errorf("status %q: %w", status, domain.ErrBadRequest)
	}

	var entry domain.TiffinEntry
	_, err = s.ledger.Update(ctx, userID, func(u *domain.User) (bool, error) {
		e, _ := u.EnsureEntry(date, tm)
		e.Apply(status, reason)
		entry = *e
		return true, nil
	})
	if err != nil {
		return domain.TiffinEntry{}, err
	}
	return entry, nil
}

func (s *service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	u, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Settings: u.Settings, History: u.Summaries()}, nil
}
