package localclock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffin-tracker/internal/domain"
)

func utc(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

func TestResolve_Kolkata(t *testing.T) {
	w, err := Resolve(utc(2024, time.January, 15, 8, 0), "Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, 13, w.Hour)
	assert.Equal(t, 30, w.Minute)
	assert.Equal(t, "2024-01-15", w.Date)
	assert.Equal(t, "2024-01", w.MonthKey)
}

func TestResolve_LocalDateDiffersFromUTC(t *testing.T) {
	// 07:50 UTC on the 16th is 23:50 PST on the 15th.
	w, err := Resolve(utc(2024, time.January, 16, 7, 50), "America/Los_Angeles")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", w.Date)
	assert.Equal(t, 23, w.Hour)
	assert.Equal(t, 50, w.Minute)

	// 18:30 UTC on Jan 31 is already 00:00 on Feb 1 in Kolkata.
	w, err = Resolve(utc(2024, time.January, 31, 18, 30), "Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", w.Date)
	assert.Equal(t, "2024-02", w.MonthKey)
}

func TestResolve_DaylightSaving(t *testing.T) {
	// US spring forward 2024-03-10: 02:00 EST jumps to 03:00 EDT (07:00 UTC).
	before, err := Resolve(utc(2024, time.March, 10, 6, 59), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 1, before.Hour)
	assert.Equal(t, 59, before.Minute)

	after, err := Resolve(utc(2024, time.March, 10, 7, 0), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 3, after.Hour)
	assert.Equal(t, 0, after.Minute)

	// Fall back 2024-11-03: 01:30 local happens twice, at 05:30 and 06:30 UTC.
	first, err := Resolve(utc(2024, time.November, 3, 5, 30), "America/New_York")
	require.NoError(t, err)
	second, err := Resolve(utc(2024, time.November, 3, 6, 30), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, first.Date, second.Date)
	assert.Equal(t, FormatHHMM(first.Hour, first.Minute), FormatHHMM(second.Hour, second.Minute))
}

func TestResolve_InvalidZones(t *testing.T) {
	for _, z := range []string{"", "Local", "Not/AZone", "UTC+5"} {
		_, err := Resolve(utc(2024, time.January, 15, 8, 0), z)
		assert.True(t, errors.Is(err, domain.ErrInvalidTimezone), "zone %q", z)
	}
}

func TestMatch(t *testing.T) {
	w := Wall{Hour: 13, Minute: 30}

	matched, malformed := Match(w, []string{"08:00", "13:30", "13:31"})
	assert.Equal(t, []string{"13:30"}, matched)
	assert.Empty(t, malformed)

	matched, _ = Match(w, []string{"13:30", "13:30"})
	assert.Equal(t, []string{"13:30", "13:30"}, matched)

	matched, malformed = Match(w, []string{"noon", "25:00", "13:3", "13:30"})
	assert.Equal(t, []string{"13:30"}, matched)
	assert.Equal(t, []string{"noon", "25:00", "13:3"}, malformed)
}

func TestMatch_NormalisesSingleDigitHour(t *testing.T) {
	matched, _ := Match(Wall{Hour: 9, Minute: 5}, []string{"9:05"})
	assert.Equal(t, []string{"09:05"}, matched)
}

func TestParseHHMM(t *testing.T) {
	h, m, err := ParseHHMM("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 59, m)

	for _, bad := range []string{"", "24:00", "12:60", "12", "1:2:3", "ab:cd", "123:00"} {
		_, _, err := ParseHHMM(bad)
		assert.True(t, errors.Is(err, domain.ErrMalformedTime), "input %q", bad)
	}
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2024-02-29"))
	assert.False(t, ValidDate("2023-02-29"))
	assert.False(t, ValidDate("15-01-2024"))
}
