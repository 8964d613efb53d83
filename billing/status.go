package billing

// =============================================================================
// PERIOD STATUS - Payment lifecycle state machine
// =============================================================================

// PeriodStatus tracks a billing period's payment lifecycle:
//
//	pending → billed → {partially-paid, paid}
//	overdue: from billed/partially-paid only, promoted by the scheduled
//	         mark-overdue procedure (time-triggered, not set by this engine)
//	waived:  administrative override, reachable from any non-terminal state
//
// paid and waived are terminal. Waived periods drop out of pending and
// overdue views but remain counted in total_periods.
type PeriodStatus string

const (
	StatusPending       PeriodStatus = "pending"
	StatusBilled        PeriodStatus = "billed"
	StatusPartiallyPaid PeriodStatus = "partially-paid"
	StatusPaid          PeriodStatus = "paid"
	StatusOverdue       PeriodStatus = "overdue"
	StatusWaived        PeriodStatus = "waived"
)

func (s PeriodStatus) Valid() bool {
	switch s {
	case StatusPending, StatusBilled, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusWaived:
		return true
	}
	return false
}

func (s PeriodStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusWaived
}

// CountsAsPending reports whether a period still represents money owed:
// anything generated but not yet settled or waived.
func (s PeriodStatus) CountsAsPending() bool {
	switch s {
	case StatusPending, StatusBilled, StatusPartiallyPaid, StatusOverdue:
		return true
	}
	return false
}

var statusTransitions = map[PeriodStatus][]PeriodStatus{
	StatusPending:       {StatusBilled, StatusWaived},
	StatusBilled:        {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusWaived},
	StatusPartiallyPaid: {StatusPaid, StatusOverdue, StatusWaived},
	StatusOverdue:       {StatusPaid, StatusWaived},
	StatusPaid:          nil,
	StatusWaived:        nil,
}

// CanTransition reports whether the status change is allowed by the
// lifecycle. Terminal states allow no transitions.
func CanTransition(from, to PeriodStatus) bool {
	for _, t := range statusTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
