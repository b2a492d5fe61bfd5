// Package localclock converts a UTC tick into a user's local wall clock and
// decides which configured HH:MM reminders fall on it.
package localclock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone database embedded so hosts without tzdata still resolve names

	"github.com/tiffin-tracker/internal/domain"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Wall is a local wall-clock reading at minute granularity.
type Wall struct {
	Year     int
	Month    time.Month
	Day      int
	Hour     int
	Minute   int
	Date     string // YYYY-MM-DD
	MonthKey string // YYYY-MM
}

var locations sync.Map // zone name -> *time.Location

// LoadZone validates an IANA zone name. Empty and "Local" are rejected since
// time.LoadLocation maps them to UTC and the host zone respectively.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return nil, fmt.Errorf("zone %q: %w", name, domain.ErrInvalidTimezone)
	}
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("zone %q: %w", name, domain.ErrInvalidTimezone)
	}
	locations.Store(name, loc)
	return loc, nil
}

// Resolve maps the instant now onto the wall clock of zone.
func Resolve(now time.Time, zone string) (Wall, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return Wall{}, err
	}
	lt := now.In(loc)
	return Wall{
		Year:     lt.Year(),
		Month:    lt.Month(),
		Day:      lt.Day(),
		Hour:     lt.Hour(),
		Minute:   lt.Minute(),
		Date:     lt.Format(DateLayout),
		MonthKey: lt.Format(MonthLayout),
	}, nil
}

// ParseHHMM parses "HH:MM" (one- or two-digit hour) into hour and minute.
func ParseHHMM(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || parts[0] == "" || len(parts[0]) > 2 {
		return 0, 0, fmt.Errorf("%q: expected HH:MM: %w", s, domain.ErrMalformedTime)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%q: invalid hour: %w", s, domain.ErrMalformedTime)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%q: invalid minute: %w", s, domain.ErrMalformedTime)
	}
	return h, m, nil
}

// FormatHHMM is the canonical form used as the entry time key.
func FormatHHMM(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Match returns the configured times that fire on w, in canonical HH:MM
// form, plus the entries that could not be parsed. Duplicates are kept so
// each one goes through idempotent creation on its own.
func Match(w Wall, times []string) (matched, malformed []string) {
	for _, t := range times {
		h, m, err := ParseHHMM(t)
		if err != nil {
			malformed = append(malformed, t)
			continue
		}
		if h == w.Hour && m == w.Minute {
			matched = append(matched, FormatHHMM(h, m))
		}
	}
	return matched, malformed
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
