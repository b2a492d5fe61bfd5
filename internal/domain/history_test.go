package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureEntry_CreatesOnceThenReturnsExisting(t *testing.T) {
	u := &User{UserID: "u1"}

	e, created := u.EnsureEntry("2024-01-15", "13:30")
	require.True(t, created)
	assert.Equal(t, StatusPending, e.Status)
	e.NotificationToken = "tok"

	again, created := u.EnsureEntry("2024-01-15", "13:30")
	assert.False(t, created)
	assert.Equal(t, "tok", again.NotificationToken)

	require.Len(t, u.TiffinHistory, 1)
	assert.Equal(t, "2024-01", u.TiffinHistory[0].Month)
	assert.Len(t, u.TiffinHistory[0].Entries, 1)
}

func TestEnsureEntry_SeparateMonthsGetSeparateBuckets(t *testing.T) {
	u := &User{}
	u.EnsureEntry("2024-01-31", "23:50")
	u.EnsureEntry("2024-02-01", "08:00")
	u.EnsureEntry("2024-02-01", "20:00")

	require.Len(t, u.TiffinHistory, 2)
	assert.Len(t, u.Month("2024-01").Entries, 1)
	assert.Len(t, u.Month("2024-02").Entries, 2)
	assert.Nil(t, u.Month("2024-03"))
}

func TestApply_ReasonOnlyKeptOnSkip(t *testing.T) {
	e := &TiffinEntry{Status: StatusPending, NotificationToken: "tok"}
	e.Apply(StatusTaken, "late")
	assert.Equal(t, StatusTaken, e.Status)
	assert.Empty(t, e.Reason)
	assert.Empty(t, e.NotificationToken)

	e.Apply(StatusSkipped, "late")
	assert.Equal(t, StatusSkipped, e.Status)
	assert.Equal(t, "late", e.Reason)
}

func TestEntryByToken(t *testing.T) {
	u := &User{UserID: "u1"}
	e, _ := u.EnsureEntry("2024-01-15", "13:30")
	e.NotificationToken = "abc"

	found := u.EntryByToken("abc")
	require.NotNil(t, found)
	assert.Equal(t, "13:30", found.Time)
	assert.Nil(t, u.EntryByToken("nope"))
	assert.Nil(t, u.EntryByToken(""))
}

func TestDiffTokens(t *testing.T) {
	u := &User{UserID: "u1"}
	a, _ := u.EnsureEntry("2024-01-15", "08:00")
	a.NotificationToken = "a"
	before := u.Tokens()

	a.Apply(StatusTaken, "")
	b, _ := u.EnsureEntry("2024-01-15", "20:00")
	b.NotificationToken = "b"

	c := DiffTokens(before, u.Tokens())
	assert.Equal(t, []string{"a"}, c.Removed)
	require.Len(t, c.Added, 1)
	assert.Equal(t, TokenRef{Token: "b", UserID: "u1", Date: "2024-01-15", Time: "20:00"}, c.Added[0])
	assert.True(t, DiffTokens(u.Tokens(), u.Tokens()).Empty())
}

func TestParseReplyStatus(t *testing.T) {
	s, ok := ParseReplyStatus("taken")
	assert.True(t, ok)
	assert.Equal(t, StatusTaken, s)

	_, ok = ParseReplyStatus("pending")
	assert.False(t, ok)
	_, ok = ParseReplyStatus("")
	assert.False(t, ok)
}

func TestEligible(t *testing.T) {
	u := User{
		Verified:         true,
		PushSubscription: &PushSubscription{Endpoint: "https://push.example/1"},
		Settings:         Settings{Timezone: "Asia/Kolkata", NotificationTimes: []string{"13:30"}},
	}
	assert.True(t, u.Eligible())

	noSub := u
	noSub.PushSubscription = nil
	assert.False(t, noSub.Eligible())

	noTimes := u
	noTimes.Settings.NotificationTimes = nil
	assert.False(t, noTimes.Eligible())

	unverified := u
	unverified.Verified = false
	assert.False(t, unverified.Eligible())
}

func TestSummaries_NewestFirstWithTotals(t *testing.T) {
	u := &User{Settings: Settings{PricePerTiffin: 50}}
	e, _ := u.EnsureEntry("2024-01-15", "13:30")
	e.Apply(StatusTaken, "")
	e, _ = u.EnsureEntry("2024-01-16", "13:30")
	e.Apply(StatusSkipped, "sick")
	e, _ = u.EnsureEntry("2024-02-01", "13:30")
	e.Apply(StatusTaken, "")
	u.EnsureEntry("2024-02-02", "13:30")

	s := u.Summaries()
	require.Len(t, s, 2)
	assert.Equal(t, "2024-02", s[0].Month)
	assert.Equal(t, 1, s[0].TotalTiffins)
	assert.Equal(t, 50.0, s[0].TotalPrice)
	assert.Equal(t, "2024-01", s[1].Month)
	assert.Equal(t, 1, s[1].TotalTiffins)
}

func TestNewReminderPayload(t *testing.T) {
	u := &User{Name: "Asha", Settings: Settings{MessName: "Annapurna"}}
	p := NewReminderPayload(u, TiffinEntry{Date: "2024-01-15", Time: "13:30", NotificationToken: "tok"})

	assert.Equal(t, "Time for your tiffin, Asha!", p.Title)
	assert.Equal(t, "Did you take your tiffin from Annapurna?", p.Body)
	require.Len(t, p.Actions, 2)
	assert.Equal(t, ActionYes, p.Actions[0].Action)
	assert.Equal(t, ActionNo, p.Actions[1].Action)
	assert.Equal(t, ReminderData{Date: "2024-01-15", Time: "13:30", Token: "tok"}, p.Data)
}

func TestClone_IsDeep(t *testing.T) {
	u := &User{
		UserID:           "u1",
		PushSubscription: &PushSubscription{Endpoint: "https://push.example/1"},
		Settings:         Settings{NotificationTimes: []string{"08:00"}},
	}
	u.EnsureEntry("2024-01-15", "08:00")

	c := u.Clone()
	c.PushSubscription.Endpoint = "changed"
	c.Settings.NotificationTimes[0] = "09:00"
	c.TiffinHistory[0].Entries[0].Status = StatusTaken

	assert.Equal(t, "https://push.example/1", u.PushSubscription.Endpoint)
	assert.Equal(t, "08:00", u.Settings.NotificationTimes[0])
	assert.Equal(t, StatusPending, u.TiffinHistory[0].Entries[0].Status)
}
