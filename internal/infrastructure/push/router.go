// Package push routes a reminder to the transport that owns the subscription.
package push

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiffin-tracker/internal/domain"
)

// SNSArnPrefix marks subscriptions registered by mobile clients.
const SNSArnPrefix = "arn:aws:sns:"

type Transport interface {
	Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error
}

type Router struct {
	web    Transport
	mobile Transport
}

// NewRouter builds a router. Either transport may be nil when not configured.
func NewRouter(web, mobile Transport) *Router {
	return &Router{web: web, mobile: mobile}
}

func (r *Router) Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	t, kind := r.web, "web push"
	if strings.HasPrefix(sub.Endpoint, SNSArnPrefix) {
		t, kind = r.mobile, "sns"
	}
	if t == nil {
		return fmt.Errorf("%s transport not configured", kind)
	}
	return t.Deliver(ctx, sub, payload)
}
