package sla

import "math"

// StatusCounts holds per-dimension tallies from the stored logs.
type StatusCounts struct {
	OnTime   int64
	Warning  int64
	Breached int64
}

// ComplianceRate computes on_time / (on_time + breached) as a percentage
// rounded to two decimals. Logs still in WARNING or UNSET are excluded from
// the denominator entirely; an empty denominator yields 0.
func ComplianceRate(onTime, breached int64) float64 {
	total := onTime + breached
	if total == 0 {
		return 0.0
	}
	rate := float64(onTime) / float64(total) * 100
	return math.Round(rate*100) / 100
}

// Rate is a convenience over the counts of one dimension.
func (c StatusCounts) Rate() float64 {
	return ComplianceRate(c.OnTime, c.Breached)
}
