package data

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
)

// FilterByPeriod keeps the trailing window of a series ending at its last sample
func FilterByPeriod(points []types.PricePoint, period time.Duration) []types.PricePoint {
	if period <= 0 || len(points) == 0 {
		return points
	}

	cutoff := points[len(points)-1].Timestamp.Add(-period)
	for i, p := range points {
		if !p.Timestamp.Before(cutoff) {
			return points[i:]
		}
	}
	return points
}

// FilterByDateRange keeps samples within [start, end]; a zero bound is open
func FilterByDateRange(points []types.PricePoint, start, end time.Time) []types.PricePoint {
	var filtered []types.PricePoint
	for _, p := range points {
		if !start.IsZero() && p.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && p.Timestamp.After(end) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// ValidateTimeSequence ensures timestamped data is in chronological order
func ValidateTimeSequence(points []types.PricePoint) error {
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.IsZero() || points[i-1].Timestamp.IsZero() {
			continue
		}
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, points[i].Timestamp.Format(time.RFC3339), points[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
