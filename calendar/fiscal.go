/*
Package calendar provides tenant-configurable period calculators.

PURPOSE:
  Tenants rarely close their books on calendar boundaries. A fiscal year
  may start April 1, a billing month may run from the 21st to the 20th.
  This package maps any calendar date to the tenant-configured fiscal
  year or monthly closing window containing it.

DESIGN PRINCIPLES:
  1. Pure: no I/O, no mutable state, no clock access
  2. Total: once a pattern passes construction-time validation, every
     date input yields a result - boundary arithmetic never panics
  3. Bit-exact boundaries: year rollover, leap years, and variable-length
     months are handled by construction, not special-cased downstream

KEY CONCEPTS IN THIS FILE (fiscal.go):
  - FiscalYearPattern: tenant + (start month, start day) anchor
  - FiscalYear: which fiscal year a date belongs to
  - YearRange: the inclusive date range of one fiscal year

SEE ALSO:
  - monthly.go: monthly closing-period calculator
  - factory/:   JSON configuration to pattern conversion
*/
package calendar

import (
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// FISCAL YEAR PATTERN
// =============================================================================

// FiscalYearPattern anchors a tenant's fiscal year at a fixed month/day.
// A fiscal year is named after the calendar year it starts in: with an
// April 1 anchor, fiscal 2024 runs 2024-04-01 through 2025-03-31.
type FiscalYearPattern struct {
	TenantID   uuid.UUID
	Name       string
	StartMonth time.Month
	StartDay   int
}

// NewFiscalYearPattern validates the anchor. The month/day pair must
// exist in every calendar year, so February is capped at 28 and each
// other month at its fixed length.
func NewFiscalYearPattern(tenantID uuid.UUID, name string, startMonth time.Month, startDay int) (FiscalYearPattern, error) {
	if startMonth < time.January || startMonth > time.December {
		return FiscalYearPattern{}, generic.Invalid("start_month", "must be 1-12, got %d", int(startMonth))
	}
	if startDay < 1 || startDay > daysInMonthEveryYear(startMonth) {
		return FiscalYearPattern{}, generic.Invalid("start_day", "must be 1-%d for %s, got %d",
			daysInMonthEveryYear(startMonth), startMonth, startDay)
	}
	return FiscalYearPattern{
		TenantID:   tenantID,
		Name:       name,
		StartMonth: startMonth,
		StartDay:   startDay,
	}, nil
}

// FiscalYear returns the fiscal year containing the date: date.year if
// the date is on or after that year's anchor, otherwise date.year - 1.
func (p FiscalYearPattern) FiscalYear(date generic.TimePoint) int {
	anchor := generic.NewTimePoint(date.Year(), p.StartMonth, p.StartDay)
	if date.AfterOrEqual(anchor) {
		return date.Year()
	}
	return date.Year() - 1
}

// YearRange returns the inclusive range of the given fiscal year:
// anchor of that year through the day before the next year's anchor.
// time.Date arithmetic shortens the end across leap boundaries (a range
// starting 2024-03-01 ends 2025-02-28).
func (p FiscalYearPattern) YearRange(year int) generic.Period {
	start := generic.NewTimePoint(year, p.StartMonth, p.StartDay)
	end := generic.NewTimePoint(year+1, p.StartMonth, p.StartDay).AddDays(-1)
	return generic.Period{Start: start, End: end}
}

// PeriodFor returns the fiscal-year range containing the date.
func (p FiscalYearPattern) PeriodFor(date generic.TimePoint) generic.Period {
	return p.YearRange(p.FiscalYear(date))
}

// daysInMonthEveryYear is the largest day number the month has in every
// year (February: 28).
func daysInMonthEveryYear(m time.Month) int {
	switch m {
	case time.February:
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
