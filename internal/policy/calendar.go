package policy

import "time"

// Calendar computes business-day based deadlines.
type Calendar interface {
	QuestionsCloseAt(ctx PolicyContext, closedAt time.Time) time.Time
}

// BusinessCalendar skips weekends and lockout days.
type BusinessCalendar struct{}

// NewBusinessCalendar constructs the default calendar.
func NewBusinessCalendar() BusinessCalendar {
	return BusinessCalendar{}
}

// IsBusinessDay reports whether t is a weekday outside the lockout.
func (BusinessCalendar) IsBusinessDay(ctx PolicyContext, t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !ctx.Lockout.Contains(t)
}

// QuestionsCloseAt returns the moment seller questions close: QuestionLeadDays
// business days before closing, never earlier than ctx.Now.
func (c BusinessCalendar) QuestionsCloseAt(ctx PolicyContext, closedAt time.Time) time.Time {
	lead := ctx.QuestionLeadDays
	if lead <= 0 {
		lead = 2
	}

	local := closedAt.In(ctx.Loc())
	candidate := local
	for counted := 0; counted < lead; {
		candidate = candidate.AddDate(0, 0, -1)
		if c.IsBusinessDay(ctx, candidate) {
			counted++
		}
	}

	if !ctx.Now.IsZero() && candidate.Before(ctx.Now) {
		candidate = ctx.Now.In(ctx.Loc())
	}
	if candidate.After(local) {
		return local
	}
	return candidate
}
