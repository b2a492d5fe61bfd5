package domain

import "sort"

// MonthSummary is one month of history with its billing totals.
type MonthSummary struct {
	Month        string        `json:"month"`
	Entries      []TiffinEntry `json:"entries"`
	TotalTiffins int           `json:"total_tiffins"`
	TotalPrice   float64       `json:"total_price"`
}

// Summaries returns every month with taken counts priced at the current
// PricePerTiffin, newest month first.
func (u *User) Summaries() []MonthSummary {
	out := make([]MonthSummary, 0, len(u.TiffinHistory))
	for _, m := range u.TiffinHistory {
		taken := 0
		for _, e := range m.Entries {
			if e.Status == StatusTaken {
				taken++
			}
		}
		entries := make([]TiffinEntry, len(m.Entries))
		copy(entries, m.Entries)
		out = append(out, MonthSummary{
			Month:        m.Month,
			Entries:      entries,
			TotalTiffins: taken,
			TotalPrice:   float64(taken) * u.Settings.PricePerTiffin,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}
