package domain

import (
	"sort"
	"strings"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusSkipped Status = "skipped"
)

// ParseReplyStatus accepts the two statuses a user can answer with.
// Pending is never a valid reply.
func ParseReplyStatus(s string) (Status, bool) {
	switch Status(strings.TrimSpace(s)) {
	case StatusTaken:
		return StatusTaken, true
	case StatusSkipped:
		return StatusSkipped, true
	}
	return "", false
}

type MonthlyHistory struct {
	Month   string        `json:"month" dynamodbav:"month"` // YYYY-MM
	Entries []TiffinEntry `json:"entries" dynamodbav:"entries"`
}

type TiffinEntry struct {
	Date              string `json:"date" dynamodbav:"date"` // YYYY-MM-DD
	Time              string `json:"time" dynamodbav:"time"` // HH:MM
	Status            Status `json:"status" dynamodbav:"status"`
	Reason            string `json:"reason" dynamodbav:"reason"`
	NotificationToken string `json:"-" dynamodbav:"notification_token,omitempty"`
}

// Apply records a final answer on the entry and consumes its token.
// The reason is kept only for skipped entries.
func (e *TiffinEntry) Apply(status Status, reason string) {
	e.Status = status
	if status == StatusSkipped {
		e.Reason = reason
	} else {
		e.Reason = ""
	}
	e.NotificationToken = ""
}

// TokenRef locates the entry a live token points at.
type TokenRef struct {
	Token  string `dynamodbav:"token"`
	UserID string `dynamodbav:"user_id"`
	Date   string `dynamodbav:"date"`
	Time   string `dynamodbav:"time"`
}

// TokenChange is the token index delta produced by one write to a user.
type TokenChange struct {
	Added   []TokenRef
	Removed []string
}

func (c TokenChange) Empty() bool { return len(c.Added) == 0 && len(c.Removed) == 0 }

// Month returns the bucket for month, or nil.
func (u *User) Month(month string) *MonthlyHistory {
	for i := range u.TiffinHistory {
		if u.TiffinHistory[i].Month == month {
			return &u.TiffinHistory[i]
		}
	}
	return nil
}

// EnsureMonth returns the bucket for month, appending an empty one first if needed.
func (u *User) EnsureMonth(month string) *MonthlyHistory {
	if m := u.Month(month); m != nil {
		return m
	}
	u.TiffinHistory = append(u.TiffinHistory, MonthlyHistory{Month: month, Entries: []TiffinEntry{}})
	return &u.TiffinHistory[len(u.TiffinHistory)-1]
}

// EnsureEntry returns the entry keyed by (date, time), creating a pending one
// if none exists. The bool reports whether the entry was created. date must
// be YYYY-MM-DD; its first seven characters select the month bucket.
// The returned pointer is valid until the next structural change to u.
func (u *User) EnsureEntry(date, tm string) (*TiffinEntry, bool) {
	m := u.EnsureMonth(monthOf(date))
	for i := range m.Entries {
		if m.Entries[i].Date == date && m.Entries[i].Time == tm {
			return &m.Entries[i], false
		}
	}
	m.Entries = append(m.Entries, TiffinEntry{Date: date, Time: tm, Status: StatusPending})
	return &m.Entries[len(m.Entries)-1], true
}

// EntryByToken finds the entry currently holding token.
func (u *User) EntryByToken(token string) *TiffinEntry {
	if token == "" {
		return nil
	}
	for i := range u.TiffinHistory {
		entries := u.TiffinHistory[i].Entries
		for j := range entries {
			if entries[j].NotificationToken == token {
				return &entries[j]
			}
		}
	}
	return nil
}

// Tokens returns every live token of the user keyed by token value.
func (u *User) Tokens() map[string]TokenRef {
	out := map[string]TokenRef{}
	for _, m := range u.TiffinHistory {
		for _, e := range m.Entries {
			if e.NotificationToken == "" {
				continue
			}
			out[e.NotificationToken] = TokenRef{Token: e.NotificationToken, UserID: u.UserID, Date: e.Date, Time: e.Time}
		}
	}
	return out
}

// DiffTokens computes the index changes between two token sets.
// Output is sorted so writes are issued in a stable order.
func DiffTokens(before, after map[string]TokenRef) TokenChange {
	var c TokenChange
	for tok, ref := range after {
		if _, ok := before[tok]; !ok {
			c.Added = append(c.Added, ref)
		}
	}
	for tok := range before {
		if _, ok := after[tok]; !ok {
			c.Removed = append(c.Removed, tok)
		}
	}
	sort.Slice(c.Added, func(i, j int) bool { return c.Added[i].Token < c.Added[j].Token })
	sort.Strings(c.Removed)
	return c
}

func monthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
