package billing

// DefaultDueGraceDays is the fallback applied when no due day is configured:
// payment is due one week after the period ends.
const DefaultDueGraceDays = 7

// CalculateDueDate computes a period's due date. Pure function, no I/O.
//
// If dueDay is within [1, 31] the candidate is the period end with its
// day-of-month replaced by dueDay. A dueDay past the end of that month rolls
// into the following month (see Date.WithDay); the clamp below then snaps
// the result back to periodEnd, so a student is never given a due date
// beyond the period's own end. A dueDay of zero or out of range falls back
// to periodEnd plus DefaultDueGraceDays.
func CalculateDueDate(periodStart, periodEnd Date, dueDay int) Date {
	_ = periodStart // part of the contract; the rule only consults periodEnd

	if dueDay >= 1 && dueDay <= 31 {
		candidate := periodEnd.WithDay(dueDay)
		if candidate.After(periodEnd) {
			return periodEnd
		}
		return candidate
	}
	return periodEnd.AddDays(DefaultDueGraceDays)
}
