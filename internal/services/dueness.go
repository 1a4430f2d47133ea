package services

import (
	"fmt"
	"time"

	"divvy/internal/core"
)

// DuenessChecker decides whether a repeating expense should be materialized
// again. Each repeat interval has its own implementation.
type DuenessChecker interface {
	// IsDue reports whether a new instance is due, given the time the
	// expense was last materialized and the expense's start date.
	IsDue(lastExecution, now, startDate time.Time) bool
}

// WeeklyChecker fires once every 7 days.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution).Hours()/24 >= 7
}

// FortnightlyChecker fires once every 14 days.
type FortnightlyChecker struct{}

func (FortnightlyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution).Hours()/24 >= 14
}

// MonthlyChecker fires once per calendar month, on the start date's day of
// month. Target days past the end of a short month clamp to its last day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, now, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() && lastExecution.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Day(), now)
}

// YearlyChecker fires once per calendar year, on the start date's month and
// day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, now, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < startDate.Month():
		return false
	case now.Month() == startDate.Month():
		return now.Day() >= clampDay(startDate.Day(), now)
	default:
		return true
	}
}

// clampDay caps a target day of month at the last day of now's month.
func clampDay(target int, now time.Time) int {
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if target > last {
		return last
	}
	return target
}

var duenessStrategies = map[core.RepeatInterval]DuenessChecker{
	core.Weekly:      WeeklyChecker{},
	core.Fortnightly: FortnightlyChecker{},
	core.Monthly:     MonthlyChecker{},
	core.Yearly:      YearlyChecker{},
}

// GetDuenessChecker returns the checker for a repeat interval. Intervals
// that never repeat have no checker.
func GetDuenessChecker(interval core.RepeatInterval) (DuenessChecker, error) {
	checker, ok := duenessStrategies[interval]
	if !ok {
		return nil, fmt.Errorf("no dueness checker for interval %q", interval)
	}
	return checker, nil
}
