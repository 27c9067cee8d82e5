package provider

import (
	"time"

	"fxrates-engine/internal/domain"
)

// SamplingStep picks the distance in days between sampled dates so that long spans
// cost a bounded number of provider calls.
func SamplingStep(start, end time.Time) int {
	span := int(domain.StartOfDayUTC(end).Sub(domain.StartOfDayUTC(start)).Hours() / 24)
	switch {
	case span > 364:
		return 14
	case span > 179:
		return 7
	case span > 29:
		return 5
	default:
		return 1
	}
}

// SampleDates lists the UTC days from start to end inclusive at SamplingStep spacing.
// It returns nil when start is after end.
func SampleDates(start, end time.Time) []time.Time {
	s, e := domain.StartOfDayUTC(start), domain.StartOfDayUTC(end)
	if s.After(e) {
		return nil
	}
	step := SamplingStep(s, e)
	var out []time.Time
	for d := s; !d.After(e); d = d.AddDate(0, 0, step) {
		out = append(out, d)
	}
	return out
}
