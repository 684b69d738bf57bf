package models

import "time"

// StreakState is the per-user counter row. Current counts consecutive credited
// days ending at LastCreditedDay; Best never decreases.
type StreakState struct {
	UserID          string      `json:"-"`
	Current         int         `json:"current"`
	Best            int         `json:"best"`
	LastCreditedDay CalendarDay `json:"last_credited_date"`
	UpdatedAt       time.Time   `json:"-"`
}

// StreakSummary is what callers of a credit see.
type StreakSummary struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// Summary drops the bookkeeping fields.
func (s StreakState) Summary() StreakSummary {
	return StreakSummary{Current: s.Current, Best: s.Best}
}
