package generic

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days. Fiscal
// years and monthly closing windows are both expressed as Periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a period, rejecting end-before-start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, Invalid("period", "end %s before start %s", end, start)
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the date falls within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Equal compares both bounds.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
