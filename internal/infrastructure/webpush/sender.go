// Package webpush delivers reminders to browser push services using VAPID.
package webpush

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpushgo "github.com/SherClockHolmes/webpush-go"

	"github.com/tiffin-tracker/internal/config"
	"github.com/tiffin-tracker/internal/domain"
)

type Sender struct {
	client     webpushgo.HTTPClient
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

func NewSender(cfg *config.Config) (*Sender, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("VAPID keys are not configured")
	}
	return &Sender{
		client:     &http.Client{},
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		// the library adds the mailto: scheme itself
		subscriber: strings.TrimPrefix(cfg.VAPIDSubject, "mailto:"),
		ttl:        cfg.PushTTLSeconds,
	}, nil
}

// Deliver encrypts payload for sub and posts it to the push service.
// 404 and 410 mean the subscription is gone for good.
func (s *Sender) Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpushgo.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpushgo.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
		Urgency:         webpushgo.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("web push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("web push status %d: %w", resp.StatusCode, domain.ErrSubscriptionGone)
	case resp.StatusCode >= 400:
		return fmt.Errorf("web push status %d", resp.StatusCode)
	}
	return nil
}
