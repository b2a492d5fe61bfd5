package domain

import "time"

// User is the per-user aggregate root. Everything the scheduler and the
// correlator touch lives inside this one document, so a single conditional
// write covers settings, subscription and history together.
type User struct {
	UserID           string            `json:"id" dynamodbav:"user_id"`
	Name             string            `json:"name" dynamodbav:"name"`
	Email            string            `json:"email" dynamodbav:"email"`
	Verified         bool              `json:"verified" dynamodbav:"verified"`
	Settings         Settings          `json:"settings" dynamodbav:"settings"`
	PushSubscription *PushSubscription `json:"-" dynamodbav:"push_subscription,omitempty"`
	TiffinHistory    []MonthlyHistory  `json:"tiffin_history" dynamodbav:"tiffin_history"`
	Version          int64             `json:"-" dynamodbav:"version"`
	CreatedAt        time.Time         `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time         `json:"updated" dynamodbav:"updated_at"`
}

type Settings struct {
	MessName          string   `json:"mess_name" dynamodbav:"mess_name"`
	PricePerTiffin    float64  `json:"price_per_tiffin" dynamodbav:"price_per_tiffin"`
	TimesPerDay       int      `json:"times_per_day" dynamodbav:"times_per_day"`
	NotificationTimes []string `json:"notification_times" dynamodbav:"notification_times"`
	Timezone          string   `json:"timezone,omitempty" dynamodbav:"timezone,omitempty"`
}

// PushSubscription is the opaque delivery-capability blob. Browsers hand us
// the W3C PushSubscription JSON; mobile clients register an SNS endpoint ARN
// as Endpoint and leave Keys empty.
type PushSubscription struct {
	Endpoint       string   `json:"endpoint" dynamodbav:"endpoint" validate:"required"`
	ExpirationTime *int64   `json:"expirationTime,omitempty" dynamodbav:"expiration_time,omitempty"`
	Keys           PushKeys `json:"keys" dynamodbav:"keys"`
}

type PushKeys struct {
	P256dh string `json:"p256dh" dynamodbav:"p256dh"`
	Auth   string `json:"auth" dynamodbav:"auth"`
}

// UpdateSettingsRequest lists every settings field a client may change.
// Nil pointers leave the stored value untouched.
type UpdateSettingsRequest struct {
	MessName          *string   `json:"mess_name" validate:"omitempty,max=120"`
	PricePerTiffin    *float64  `json:"price_per_tiffin" validate:"omitempty,gte=0"`
	NotificationTimes *[]string `json:"notification_times" validate:"omitempty,max=24,dive,hhmm"`
	Timezone          *string   `json:"timezone" validate:"omitempty,timezone"`
}

// Eligible reports whether the scheduler should consider the user at all.
func (u *User) Eligible() bool {
	return u.Verified &&
		u.PushSubscription != nil &&
		u.Settings.Timezone != "" &&
		len(u.Settings.NotificationTimes) > 0
}

// Clone returns a deep copy so in-process stores never share slices with callers.
func (u *User) Clone() *User {
	c := *u
	c.Settings.NotificationTimes = append([]string(nil), u.Settings.NotificationTimes...)
	if u.PushSubscription != nil {
		sub := *u.PushSubscription
		if sub.ExpirationTime != nil {
			exp := *sub.ExpirationTime
			sub.ExpirationTime = &exp
		}
		c.PushSubscription = &sub
	}
	if u.TiffinHistory != nil {
		c.TiffinHistory = make([]MonthlyHistory, len(u.TiffinHistory))
		for i, m := range u.TiffinHistory {
			c.TiffinHistory[i] = MonthlyHistory{Month: m.Month, Entries: append([]TiffinEntry{}, m.Entries...)}
		}
	}
	return &c
}
