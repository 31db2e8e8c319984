package core

// Period is one billing window, inclusive on both ends. It is derived from
// the cutoff day and "now" on every read, never persisted.
type Period struct {
	Start Date
	End   Date
}

// Cutoff days are capped at 28 so the end boundary (day before the cutoff
// in the next month) exists in every month, leap years included.
const (
	MinCutoffDay     = 1
	MaxCutoffDay     = 28
	DefaultCutoffDay = 1
)

// NormalizeCutoffDay clamps out-of-range or unset cutoff days to the
// default. Callers parsing user input pass 0 for non-numeric values.
func NormalizeCutoffDay(day int) int {
	if day < MinCutoffDay || day > MaxCutoffDay {
		return DefaultCutoffDay
	}
	return day
}

// ActivePeriod computes the billing window containing today. When today's
// day-of-month has reached the cutoff the window starts this month,
// otherwise it started last month. time.Date normalizes month overflow, so
// December+1 and January-1 roll the year correctly.
func ActivePeriod(today Date, cutoffDay int) Period {
	day := NormalizeCutoffDay(cutoffDay)
	y, m := today.Year(), int(today.Month())
	if today.Day() >= day {
		return Period{
			Start: NewDate(y, m, day),
			End:   NewDate(y, m+1, day-1),
		}
	}
	return Period{
		Start: NewDate(y, m-1, day),
		End:   NewDate(y, m, day-1),
	}
}

// Contains reports whether the calendar day d falls within the period,
// inclusive on both ends. Zero dates are never inside any period.
func (p Period) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	return !d.Before(p.Start) && !d.After(p.End)
}

// Label renders the period for display ("5 Jan - 4 Feb 2025"). It degrades
// to a generic label if the period is malformed rather than failing.
func (p Period) Label() string {
	if p.Start.IsZero() || p.End.IsZero() {
		return "Active period"
	}
	return p.Start.Format("2 Jan") + " - " + p.End.Format("2 Jan 2006")
}

// FilterByPeriod returns the expenses whose date falls inside the period.
// Records with a missing date are excluded, never an error. The input is
// not modified; the result preserves input order.
func FilterByPeriod(list []Expense, p Period) []Expense {
	out := make([]Expense, 0, len(list))
	for _, e := range list {
		if p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}
