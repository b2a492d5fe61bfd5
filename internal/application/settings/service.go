package settings

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/application/ledger"
	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/pkg/localclock"
	"github.com/tiffin-tracker/internal/pkg/validate"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.Settings, error)
	Update(ctx context.Context, userID string, req domain.UpdateSettingsRequest) (*domain.Settings, error)
	SaveSubscription(ctx context.Context, userID string, sub domain.PushSubscription) error
	// RemoveSubscription clears the stored subscription only while it still
	// points at endpoint, so a newer subscription survives a late failure.
	RemoveSubscription(ctx context.Context, userID, endpoint string) error
}

type service struct {
	ledger *ledger.Ledger
	log    logrus.FieldLogger
}

func NewService(l *ledger.Ledger, log logrus.FieldLogger) Service {
	return &service{ledger: l, log: log}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	u, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &u.Settings, nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateSettingsRequest) (*domain.Settings, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	var times []string
	if req.NotificationTimes != nil {
		times = make([]string, 0, len(*req.NotificationTimes))
		for _, t := range *req.NotificationTimes {
			h, m, err := localclock.ParseHHMM(t)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
			}
			times = append(times, localclock.FormatHHMM(h, m))
		}
	}
	if req.Timezone != nil {
		if _, err := localclock.LoadZone(*req.Timezone); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
		}
	}

	u, err := s.ledger.Update(ctx, userID, func(u *domain.User) (bool, error) {
		st := &u.Settings
		if req.MessName != nil {
			st.MessName = *req.MessName
		}
		if req.PricePerTiffin != nil {
			st.PricePerTiffin = *req.PricePerTiffin
		}
		if req.NotificationTimes != nil {
			st.NotificationTimes = times
		}
		if req.Timezone != nil {
			st.Timezone = *req.Timezone
		}
		st.TimesPerDay = len(st.NotificationTimes)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &u.Settings, nil
}

func (s *service) SaveSubscription(ctx context.Context, userID string, sub domain.PushSubscription) error {
	if err := validate.Struct(sub); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	_, err := s.ledger.Update(ctx, userID, func(u *domain.User) (bool, error) {
		u.PushSubscription = &sub
		return true, nil
	})
	return err
}

func (s *service) RemoveSubscription(ctx context.Context, userID, endpoint string) error {
	removed := false
	_, err := s.ledger.Update(ctx, userID, func(u *domain.User) (bool, error) {
		removed = u.PushSubscription != nil && u.PushSubscription.Endpoint == endpoint
		if removed {
			u.PushSubscription = nil
		}
		return removed, nil
	})
	if err != nil {
		return err
	}
	if removed {
		s.log.WithField("user_id", userID).Info("push subscription removed")
	}
	return nil
}
