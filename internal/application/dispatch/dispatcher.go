// Package dispatch sends a reminder for one entry and reacts to the delivery
// outcome. Delivery is attempted once; nothing here retries.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/domain"
)

// Deliverer pushes payload to a subscription. It returns
// domain.ErrSubscriptionGone when the subscription is permanently invalid;
// any other error is transient.
type Deliverer interface {
	Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error
}

// SubscriptionRemover clears a user's subscription if it still points at endpoint.
type SubscriptionRemover interface {
	RemoveSubscription(ctx context.Context, userID, endpoint string) error
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeGone
	OutcomeTransient
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeGone:
		return "gone"
	case OutcomeTransient:
		return "transient"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

type Dispatcher struct {
	deliverer Deliverer
	subs      SubscriptionRemover
	timeout   time.Duration
	log       logrus.FieldLogger
}

func NewDispatcher(d Deliverer, subs SubscriptionRemover, timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{deliverer: d, subs: subs, timeout: timeout, log: log}
}

// Dispatch delivers the reminder for e to u. Entries without a token and users
// without a subscription are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, u *domain.User, e domain.TiffinEntry) Outcome {
	log := d.log.WithFields(logrus.Fields{"user_id": u.UserID, "date": e.Date, "time": e.Time})
	if u.PushSubscription == nil || e.NotificationToken == "" {
		log.Debug("nothing to dispatch")
		return OutcomeSkipped
	}
	sub := *u.PushSubscription

	payload, err := json.Marshal(domain.NewReminderPayload(u, e))
	if err != nil {
		log.WithError(err).Error("encode reminder payload")
		return OutcomeTransient
	}

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err = d.deliverer.Deliver(sendCtx, sub, payload)
	switch {
	case err == nil:
		log.Info("reminder sent")
		return OutcomeOK
	case errors.Is(err, domain.ErrSubscriptionGone):
		log.WithError(err).Warn("push subscription gone, removing")
		if rmErr := d.subs.RemoveSubscription(ctx, u.UserID, sub.Endpoint); rmErr != nil {
			log.WithError(rmErr).Error("remove push subscription")
		}
		return OutcomeGone
	default:
		log.WithError(err).Warn("reminder delivery failed")
		return OutcomeTransient
	}
}
