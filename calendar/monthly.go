/*
monthly.go - Monthly closing-period calculator

PURPOSE:
  Computes the tenant's billing month for any date. With a start day of
  21, the "January 2025" closing period is 2024-12-21 through 2025-01-20:
  the display month is always the calendar month of the period's END.

WHY START DAY IS CAPPED AT 28:
  Every calendar month, including February, has days 1-28. Capping the
  anchor there means next-month arithmetic never lands on a day number
  the target month is missing, so the calculator stays total.

SEE ALSO:
  - fiscal.go: fiscal-year counterpart and package doc
*/
package calendar

import (
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// MONTHLY PERIOD PATTERN
// =============================================================================

// MonthlyPeriodPattern anchors a tenant's monthly closing boundary at a
// fixed day of month (1-28).
type MonthlyPeriodPattern struct {
	TenantID uuid.UUID
	Name     string
	StartDay int
}

// ClosingPeriod is one billing month: the date range plus the month and
// year the period is displayed and approved under.
type ClosingPeriod struct {
	Range        generic.Period
	DisplayMonth time.Month
	DisplayYear  int
}

// NewMonthlyPeriodPattern validates the anchor day.
func NewMonthlyPeriodPattern(tenantID uuid.UUID, name string, startDay int) (MonthlyPeriodPattern, error) {
	if startDay < 1 || startDay > 28 {
		return MonthlyPeriodPattern{}, generic.Invalid("start_day", "must be 1-28, got %d", startDay)
	}
	return MonthlyPeriodPattern{TenantID: tenantID, Name: name, StartDay: startDay}, nil
}

// PeriodFor returns the closing period containing the date. If the
// date's day is on or after the anchor, the period starts this month;
// otherwise it started last month.
func (p MonthlyPeriodPattern) PeriodFor(date generic.TimePoint) ClosingPeriod {
	start := generic.NewTimePoint(date.Year(), date.Month(), p.StartDay)
	if date.Day() < p.StartDay {
		start = start.AddMonths(-1)
	}
	end := start.AddMonths(1).AddDays(-1)

	return ClosingPeriod{
		Range:        generic.Period{Start: start, End: end},
		DisplayMonth: end.Month(),
		DisplayYear:  end.Year(),
	}
}

// PeriodForDisplay returns the closing period displayed under the given
// month and year. Inverse of PeriodFor's display fields.
func (p MonthlyPeriodPattern) PeriodForDisplay(year int, month time.Month) ClosingPeriod {
	end := generic.NewTimePoint(year, month, p.StartDay).AddDays(-1)
	if p.StartDay == 1 {
		// Anchor on the 1st: the period is the calendar month itself.
		end = generic.NewTimePoint(year, month, 1).AddMonths(1).AddDays(-1)
	}
	start := end.AddDays(1).AddMonths(-1)
	return ClosingPeriod{
		Range:        generic.Period{Start: start, End: end},
		DisplayMonth: month,
		DisplayYear:  year,
	}
}
