package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	ErrInvalidTimezone  = errors.New("invalid timezone")
	ErrMalformedTime    = errors.New("malformed time")
	ErrTokenNotFound    = errors.New("token not found")
	ErrSubscriptionGone = errors.New("push subscription gone")
)
