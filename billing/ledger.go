/*
ledger.go - Read-only ledger operations over billing periods

PURPOSE:
  Aggregation and query operations driving "what's owed" views:
  pending periods, overdue periods, and per-student dues totals.

LIVE BALANCES:
  The overdue check computes bill.net_amount minus the live sum of the
  bill's payments. It never trusts a cached balance column; under partial
  payments a cached column can lag, and a period must drop out of the
  overdue view the moment its balance reaches zero.

NULL TOLERANCE:
  The derived amount columns on periods may be absent until billing
  populates them. Sums coalesce absent values to zero; a null never
  propagates into a monetary total.

ERROR HANDLING:
  Any underlying query failure surfaces as an AggregationError naming the
  operation that failed. No retries at this layer.
*/
package billing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// LedgerReader provides read-only views over a student's billing periods.
// Pure reads: no locking, no caching, request-scoped.
type LedgerReader struct {
	Store Store
}

func NewLedgerReader(store Store) *LedgerReader {
	return &LedgerReader{Store: store}
}

// PendingPeriods returns the student's unsettled periods (pending, billed,
// partially-paid, overdue) ordered by period start ascending.
func (l *LedgerReader) PendingPeriods(ctx context.Context, studentID StudentID) ([]BillingPeriod, error) {
	periods, err := l.Store.PeriodsByStudent(ctx, studentID)
	if err != nil {
		return nil, &AggregationError{Op: "pending_periods", StudentID: studentID, Err: err}
	}

	pending := make([]BillingPeriod, 0, len(periods))
	for _, p := range periods {
		if p.Status.CountsAsPending() {
			pending = append(pending, p)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].PeriodStart.Before(pending[j].PeriodStart)
	})
	return pending, nil
}

// OverduePeriod is a billed period whose due date has passed with money
// still outstanding. Outstanding is the live balance at read time.
type OverduePeriod struct {
	Period      BillingPeriod
	Bill        FeeBill
	Outstanding decimal.Decimal
}

// OverduePeriods returns periods in billed or partially-paid status whose
// bill's due date is strictly before asOf and whose live outstanding balance
// is strictly positive, ordered by due date ascending.
//
// A fully paid bill with a past due date does not appear, nor does any bill
// due in the future regardless of balance.
func (l *LedgerReader) OverduePeriods(ctx context.Context, studentID StudentID, asOf Date) ([]OverduePeriod, error) {
	periods, err := l.Store.PeriodsByStudent(ctx, studentID)
	if err != nil {
		return nil, &AggregationError{Op: "overdue_periods", StudentID: studentID, Err: err}
	}
	bills, err := l.Store.BillsByStudent(ctx, studentID)
	if err != nil {
		return nil, &AggregationError{Op: "overdue_periods", StudentID: studentID, Err: err}
	}
	billByPeriod := make(map[PeriodID]FeeBill, len(bills))
	for _, b := range bills {
		billByPeriod[b.PeriodID] = b
	}

	var overdue []OverduePeriod
	for _, p := range periods {
		if p.Status != StatusBilled && p.Status != StatusPartiallyPaid {
			continue
		}
		bill, ok := billByPeriod[p.ID]
		if !ok || !bill.DueDate.Before(asOf) {
			continue
		}
		payments, err := l.Store.PaymentsByBill(ctx, bill.ID)
		if err != nil {
			return nil, &AggregationError{Op: "overdue_periods", StudentID: studentID, Err: err}
		}
		outstanding := bill.NetAmount
		for _, pay := range payments {
			outstanding = outstanding.Sub(pay.AmountPaid)
		}
		if outstanding.GreaterThan(decimal.Zero) {
			overdue = append(overdue, OverduePeriod{Period: p, Bill: bill, Outstanding: outstanding})
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].Bill.DueDate.Before(overdue[j].Bill.DueDate)
	})
	return overdue, nil
}

// DuesSummary aggregates a student's periods regardless of status.
type DuesSummary struct {
	TotalPeriods   int
	PaidPeriods    int
	PendingPeriods int
	TotalExpected  decimal.Decimal
	TotalPaid      decimal.Decimal
	TotalBalance   decimal.Decimal
	OverdueAmount  decimal.Decimal
}

// StudentTotalDues computes the dues aggregate over all of a student's
// periods. Absent amount fields contribute zero. OverdueAmount sums balances
// restricted to periods in stored overdue status.
func (l *LedgerReader) StudentTotalDues(ctx context.Context, studentID StudentID) (*DuesSummary, error) {
	periods, err := l.Store.PeriodsByStudent(ctx, studentID)
	if err != nil {
		return nil, &AggregationError{Op: "student_total_dues", StudentID: studentID, Err: err}
	}

	summary := &DuesSummary{
		TotalExpected: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalBalance:  decimal.Zero,
		OverdueAmount: decimal.Zero,
	}
	for _, p := range periods {
		summary.TotalPeriods++
		if p.Status == StatusPaid {
			summary.PaidPeriods++
		}
		if p.Status.CountsAsPending() {
			summary.PendingPeriods++
		}
		summary.TotalExpected = summary.TotalExpected.Add(amountOrZero(p.ExpectedAmount))
		summary.TotalPaid = summary.TotalPaid.Add(amountOrZero(p.PaidAmount))
		summary.TotalBalance = summary.TotalBalance.Add(amountOrZero(p.BalanceAmount))
		if p.Status == StatusOverdue {
			summary.OverdueAmount = summary.OverdueAmount.Add(amountOrZero(p.BalanceAmount))
		}
	}
	return summary, nil
}

// MarkOverduePeriods invokes the external overdue-promotion procedure.
// The procedure's logic lives server-side; this engine only calls it and
// propagates failures wrapped with context.
func MarkOverduePeriods(ctx context.Context, store Store) (int, error) {
	n, err := store.MarkOverduePeriods(ctx)
	if err != nil {
		return 0, &DependencyError{Procedure: "mark_overdue_periods", Err: err}
	}
	return n, nil
}
