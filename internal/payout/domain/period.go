package domain

import (
	"fmt"
	"time"
)

// PreviousCycle returns the cycle one month earlier, wrapping January into
// December of the prior year.
func PreviousCycle(year, month int) (int, int) {
	if month <= 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// ValidateCycle rejects a batch that cannot be attached to a cycle.
func ValidateCycle(year, month int) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrMissingBatchContext, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrMissingBatchContext, month)
	}
	return nil
}

// CycleIndex orders cycles on a single axis.
func CycleIndex(year, month int) int {
	return year*12 + (month - 1)
}

// CycleBounds is the calendar window [first of month, first of next month).
func CycleBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// DaysBetween counts whole calendar days from start to end. Absent dates
// yield zero.
func DaysBetween(start, end *time.Time) int {
	if start == nil || end == nil {
		return 0
	}
	s := truncateDay(*start)
	e := truncateDay(*end)
	return int(e.Sub(s).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
