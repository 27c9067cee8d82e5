package domain

import "time"

// RateQuote is the number of To units per one From unit observed at ObservedAt (UTC).
type RateQuote struct {
	From       Currency
	To         Currency
	Rate       float64
	ObservedAt time.Time
}

// StartOfDayUTC truncates t to midnight UTC of its UTC calendar day.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
