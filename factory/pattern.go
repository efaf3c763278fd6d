/*
Package factory provides JSON to Go calendar-pattern conversion.

PURPOSE:
  Converts JSON pattern definitions into calendar.FiscalYearPattern and
  calendar.MonthlyPeriodPattern values. This enables per-tenant calendar
  configuration without code changes - an administrator defines the
  tenant's closing boundaries in JSON, and the factory creates the
  proper Go structs.

WHY JSON?
  - Non-developers can configure tenant calendars
  - Easy integration with an admin UI
  - Version control for tenant configurations
  - Database or env storage of configs

JSON SCHEMA:
  {
    "tenant_id": "0f0e8b9a-...",
    "fiscal_year": {
      "name": "JP fiscal year",
      "start_month": 4,
      "start_day": 1
    },
    "monthly_period": {
      "name": "21st closing",
      "start_day": 21
    }
  }

DEFAULTS:
  Omitting fiscal_year yields a January 1 anchor; omitting
  monthly_period yields calendar months (start day 1). Validation
  failures surface as generic.ValidationError with the offending field.

USAGE:
  f := factory.NewPatternFactory()
  cfg, err := f.Parse(jsonString)
  period := cfg.Monthly.PeriodFor(generic.Today())

SEE ALSO:
  - calendar/: the pattern types and their arithmetic
*/
package factory

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warp/timesheet-engine/calendar"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TenantCalendarJSON is the JSON representation of a tenant's calendar
// configuration.
type TenantCalendarJSON struct {
	TenantID      string             `json:"tenant_id" validate:"required,uuid4|uuid"`
	FiscalYear    *FiscalYearJSON    `json:"fiscal_year,omitempty"`
	MonthlyPeriod *MonthlyPeriodJSON `json:"monthly_period,omitempty"`
}

// FiscalYearJSON configures the fiscal-year anchor.
type FiscalYearJSON struct {
	Name       string `json:"name"`
	StartMonth int    `json:"start_month" validate:"min=1,max=12"`
	StartDay   int    `json:"start_day" validate:"min=1,max=31"`
}

// MonthlyPeriodJSON configures the monthly closing anchor.
type MonthlyPeriodJSON struct {
	Name     string `json:"name"`
	StartDay int    `json:"start_day" validate:"min=1,max=28"`
}

// TenantCalendar bundles the constructed patterns for one tenant.
type TenantCalendar struct {
	TenantID uuid.UUID
	Fiscal   calendar.FiscalYearPattern
	Monthly  calendar.MonthlyPeriodPattern
}

// =============================================================================
// PATTERN FACTORY
// =============================================================================

// PatternFactory creates calendar patterns from JSON definitions.
type PatternFactory struct {
	validate *validator.Validate
}

// NewPatternFactory creates a new pattern factory.
func NewPatternFactory() *PatternFactory {
	return &PatternFactory{validate: validator.New()}
}

// Parse converts a JSON tenant calendar definition into patterns.
func (f *PatternFactory) Parse(jsonStr string) (TenantCalendar, error) {
	var cfg TenantCalendarJSON
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return TenantCalendar{}, generic.Invalid("config", "malformed JSON: %v", err)
	}
	return f.Build(cfg)
}

// Build converts an already-decoded definition into patterns, applying
// defaults for omitted sections.
func (f *PatternFactory) Build(cfg TenantCalendarJSON) (TenantCalendar, error) {
	if err := f.validate.Struct(cfg); err != nil {
		return TenantCalendar{}, generic.Invalid("config", "%v", err)
	}
	tenantID, err := uuid.Parse(cfg.TenantID)
	if err != nil {
		return TenantCalendar{}, generic.Invalid("tenant_id", "not a UUID: %q", cfg.TenantID)
	}

	fy := FiscalYearJSON{Name: "calendar year", StartMonth: 1, StartDay: 1}
	if cfg.FiscalYear != nil {
		fy = *cfg.FiscalYear
	}
	fiscal, err := calendar.NewFiscalYearPattern(tenantID, fy.Name, time.Month(fy.StartMonth), fy.StartDay)
	if err != nil {
		return TenantCalendar{}, err
	}

	mp := MonthlyPeriodJSON{Name: "calendar month", StartDay: 1}
	if cfg.MonthlyPeriod != nil {
		mp = *cfg.MonthlyPeriod
	}
	monthly, err := calendar.NewMonthlyPeriodPattern(tenantID, mp.Name, mp.StartDay)
	if err != nil {
		return TenantCalendar{}, err
	}

	return TenantCalendar{TenantID: tenantID, Fiscal: fiscal, Monthly: monthly}, nil
}
