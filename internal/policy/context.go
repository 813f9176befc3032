package policy

import "time"

// Lockout is a closed date range during which business days are not counted.
// Start and End are inclusive calendar dates.
type Lockout struct {
	Start time.Time
	End   time.Time
}

// Active reports whether the lockout carries a range.
func (l Lockout) Active() bool {
	return !l.Start.IsZero() && !l.End.IsZero() && !l.End.Before(l.Start)
}

// Contains reports whether the calendar date of t falls within the lockout.
func (l Lockout) Contains(t time.Time) bool {
	if !l.Active() {
		return false
	}
	day := truncateDay(t)
	return !day.Before(truncateDay(l.Start.In(t.Location()))) && !day.After(truncateDay(l.End.In(t.Location())))
}

// PolicyContext carries the cross-cutting policy values for one invocation.
// It is populated once by the caller and never mutated by the engine.
type PolicyContext struct {
	Now              time.Time
	Location         *time.Location
	Lockout          Lockout
	QuestionLeadDays int
	ClosingHour      int
}

// WithNow returns a copy stamped with the invocation time.
func (p PolicyContext) WithNow(now time.Time) PolicyContext {
	p.Now = now
	return p
}

// Loc returns the policy location, defaulting to UTC.
func (p PolicyContext) Loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
