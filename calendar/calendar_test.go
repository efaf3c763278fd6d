package calendar_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/calendar"
	"github.com/warp/timesheet-engine/generic"
)

func date(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

// =============================================================================
// FISCAL YEAR PATTERN
// =============================================================================

func TestFiscalYearPattern_Construction(t *testing.T) {
	tenant := uuid.New()

	cases := []struct {
		name    string
		month   time.Month
		day     int
		wantErr bool
	}{
		{"april first", time.April, 1, false},
		{"december thirty-first", time.December, 31, false},
		{"february twenty-eighth", time.February, 28, false},
		{"february twenty-ninth rejected", time.February, 29, true},
		{"april thirty-first rejected", time.April, 31, true},
		{"month zero rejected", time.Month(0), 1, true},
		{"month thirteen rejected", time.Month(13), 1, true},
		{"day zero rejected", time.June, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := calendar.NewFiscalYearPattern(tenant, "fy", tc.month, tc.day)
			if tc.wantErr {
				assert.ErrorIs(t, err, generic.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFiscalYear_AprilFirstBoundary(t *testing.T) {
	// GIVEN: Fiscal year starting April 1
	// THEN: March 31 belongs to the previous fiscal year, April 1 to the new one

	p, err := calendar.NewFiscalYearPattern(uuid.New(), "jp-fiscal", time.April, 1)
	require.NoError(t, err)

	assert.Equal(t, 2024, p.FiscalYear(date(2025, time.March, 31)))
	assert.Equal(t, 2025, p.FiscalYear(date(2025, time.April, 1)))
	assert.Equal(t, 2025, p.FiscalYear(date(2025, time.December, 31)))
	assert.Equal(t, 2025, p.FiscalYear(date(2026, time.January, 15)))
}

func TestFiscalYearRange_LeapBoundary(t *testing.T) {
	// GIVEN: Fiscal year starting March 1
	// WHEN: Computing the range for 2024 (a leap year)
	// THEN: The range ends 2025-02-28, not 2025-02-29

	p, err := calendar.NewFiscalYearPattern(uuid.New(), "march-start", time.March, 1)
	require.NoError(t, err)

	r := p.YearRange(2024)
	assert.True(t, r.Start.Equal(date(2024, time.March, 1)), "start %s", r.Start)
	assert.True(t, r.End.Equal(date(2025, time.February, 28)), "end %s", r.End)

	// And the leap day itself falls inside the range.
	assert.True(t, r.Contains(date(2024, time.February, 29)) == false)
	assert.True(t, r.Contains(date(2025, time.February, 28)))
}

func TestFiscalYearRange_ContainsEveryDayExactlyOnce(t *testing.T) {
	// Walking day by day across a year boundary, PeriodFor must agree
	// with FiscalYear and never skip or double-count a day.

	p, err := calendar.NewFiscalYearPattern(uuid.New(), "fy", time.April, 1)
	require.NoError(t, err)

	d := date(2024, time.March, 25)
	for i := 0; i < 14; i++ {
		period := p.PeriodFor(d)
		assert.True(t, period.Contains(d), "day %s not in its own fiscal period %s", d, period)
		assert.Equal(t, p.YearRange(p.FiscalYear(d)), period)
		d = d.AddDays(1)
	}
}

// =============================================================================
// MONTHLY PERIOD PATTERN
// =============================================================================

func TestMonthlyPeriodPattern_Construction(t *testing.T) {
	tenant := uuid.New()

	_, err := calendar.NewMonthlyPeriodPattern(tenant, "closing", 1)
	assert.NoError(t, err)
	_, err = calendar.NewMonthlyPeriodPattern(tenant, "closing", 28)
	assert.NoError(t, err)
	_, err = calendar.NewMonthlyPeriodPattern(tenant, "closing", 0)
	assert.ErrorIs(t, err, generic.ErrValidation)
	_, err = calendar.NewMonthlyPeriodPattern(tenant, "closing", 29)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestMonthlyPeriod_StartDay21(t *testing.T) {
	p, err := calendar.NewMonthlyPeriodPattern(uuid.New(), "21st close", 21)
	require.NoError(t, err)

	// Before the anchor: the period began last month.
	cp := p.PeriodFor(date(2025, time.January, 15))
	assert.True(t, cp.Range.Start.Equal(date(2024, time.December, 21)), "start %s", cp.Range.Start)
	assert.True(t, cp.Range.End.Equal(date(2025, time.January, 20)), "end %s", cp.Range.End)
	assert.Equal(t, time.January, cp.DisplayMonth)
	assert.Equal(t, 2025, cp.DisplayYear)

	// On the anchor: a new period begins.
	cp = p.PeriodFor(date(2025, time.January, 21))
	assert.True(t, cp.Range.Start.Equal(date(2025, time.January, 21)), "start %s", cp.Range.Start)
	assert.True(t, cp.Range.End.Equal(date(2025, time.February, 20)), "end %s", cp.Range.End)
	assert.Equal(t, time.February, cp.DisplayMonth)
	assert.Equal(t, 2025, cp.DisplayYear)
}

func TestMonthlyPeriod_FebruaryNeverBreaks(t *testing.T) {
	// Anchor 28 in and around February, leap and non-leap.

	p, err := calendar.NewMonthlyPeriodPattern(uuid.New(), "28th close", 28)
	require.NoError(t, err)

	cp := p.PeriodFor(date(2024, time.February, 28)) // leap year, on anchor
	assert.True(t, cp.Range.Start.Equal(date(2024, time.February, 28)))
	assert.True(t, cp.Range.End.Equal(date(2024, time.March, 27)))

	cp = p.PeriodFor(date(2024, time.February, 29)) // leap day, after anchor
	assert.True(t, cp.Range.Start.Equal(date(2024, time.February, 28)))

	cp = p.PeriodFor(date(2025, time.February, 27)) // non-leap, before anchor
	assert.True(t, cp.Range.Start.Equal(date(2025, time.January, 28)))
	assert.True(t, cp.Range.End.Equal(date(2025, time.February, 27)))
}

func TestMonthlyPeriod_YearRollover(t *testing.T) {
	p, err := calendar.NewMonthlyPeriodPattern(uuid.New(), "closing", 21)
	require.NoError(t, err)

	cp := p.PeriodFor(date(2024, time.December, 25))
	assert.True(t, cp.Range.Start.Equal(date(2024, time.December, 21)))
	assert.True(t, cp.Range.End.Equal(date(2025, time.January, 20)))
	assert.Equal(t, time.January, cp.DisplayMonth)
	assert.Equal(t, 2025, cp.DisplayYear)
}

func TestMonthlyPeriod_DisplayRoundTrip(t *testing.T) {
	// PeriodForDisplay is the inverse of PeriodFor's display fields.

	for _, startDay := range []int{1, 15, 21, 28} {
		p, err := calendar.NewMonthlyPeriodPattern(uuid.New(), "closing", startDay)
		require.NoError(t, err)

		d := date(2024, time.November, 1)
		for i := 0; i < 120; i++ {
			cp := p.PeriodFor(d)
			back := p.PeriodForDisplay(cp.DisplayYear, cp.DisplayMonth)
			assert.True(t, back.Range.Equal(cp.Range),
				"startDay=%d date=%s: %s != %s", startDay, d, back.Range, cp.Range)
			d = d.AddDays(1)
		}
	}
}
