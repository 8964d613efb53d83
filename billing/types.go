/*
Package billing implements fee-period scheduling and ledger reconciliation
for a multi-tenant school management service.

PURPOSE:
  Given a student's fee-cycle configuration (monthly/quarterly/yearly/one-time),
  the engine generates the canonical set of billing periods for an academic
  year, tracks each period's payment lifecycle, and computes dues/overdue
  aggregates consistently.

KEY CONCEPTS IN THIS FILE (types.go):
  - FeeCycle:      A student's billing cadence configuration
  - BillingPeriod: One billable interval, uniquely identified by its natural key
  - FeeBill:       An issued bill for a period, carrying due date and net amount
  - FeePayment:    A payment applied against a bill
  - Student:       Read-only dependency; admission date bounds generation

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money, never floats
  2. Idempotence: Period identity is the natural key; regeneration is a no-op
  3. Null tolerance: Amount fields may be absent; sums coalesce them to zero
  4. Injected storage: All persistence goes through the Store interface

SEE ALSO:
  - schedule.go: Period generation from fee cycles
  - ledger.go:   Pending/overdue/dues read operations
  - status.go:   BillingPeriod status state machine
  - duedate.go:  Due-date calculation for bill issuance
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type SchoolID string
type PeriodID string
type BillID string
type PaymentID string

// =============================================================================
// FEE CYCLE - Billing cadence configuration
// =============================================================================

type CycleType string

const (
	CycleMonthly   CycleType = "monthly"
	CycleQuarterly CycleType = "quarterly"
	CycleYearly    CycleType = "yearly"
	CycleOneTime   CycleType = "one-time" // billed by a separate one-off flow, never generates periods
)

func (c CycleType) Valid() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleYearly, CycleOneTime:
		return true
	}
	return false
}

// FeeCycle is a student's billing cadence configuration. Cycles are
// deactivated rather than deleted; only active cycles drive generation.
type FeeCycle struct {
	StudentID     StudentID
	SchoolID      SchoolID
	CycleType     CycleType
	EffectiveFrom Date
	EffectiveTo   *Date // nil = open-ended
	IsActive      bool
}

// =============================================================================
// BILLING PERIOD - One billable interval for a student
// =============================================================================

type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

// BillingPeriod is one billable interval. PeriodMonth is set (1-12) only for
// monthly periods and PeriodQuarter (1-4) only for quarterly periods; both
// are zero otherwise so the natural key stays well-defined at the storage
// layer (a NULL component would defeat the uniqueness constraint).
type BillingPeriod struct {
	ID            PeriodID
	StudentID     StudentID
	SchoolID      SchoolID
	PeriodType    PeriodType
	PeriodYear    int
	PeriodMonth   int
	PeriodQuarter int
	PeriodStart   Date
	PeriodEnd     Date
	Status        PeriodStatus

	// Maintained by billing/payment flows, read by dues aggregation.
	// nil means "not yet populated" and contributes zero to sums.
	ExpectedAmount *decimal.Decimal
	PaidAmount     *decimal.Decimal
	BalanceAmount  *decimal.Decimal
}

// NaturalKey is the idempotence key for period generation. At most one period
// per natural key may ever exist for a student.
func (p BillingPeriod) NaturalKey() string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", p.StudentID, p.PeriodType, p.PeriodYear, p.PeriodMonth, p.PeriodQuarter)
}

// =============================================================================
// BILLS AND PAYMENTS
// =============================================================================

// FeeBill is an issued bill for a period. A period has at most one bill.
type FeeBill struct {
	ID        BillID
	PeriodID  PeriodID
	DueDate   Date
	NetAmount decimal.Decimal
}

// FeePayment is a payment applied against a bill. The outstanding balance of
// a bill is always NetAmount minus the live sum of its payments.
type FeePayment struct {
	ID         PaymentID
	BillID     BillID
	AmountPaid decimal.Decimal
	PaidAt     Date
}

// =============================================================================
// STUDENT - Read-only dependency
// =============================================================================

type Student struct {
	ID            StudentID
	SchoolID      SchoolID
	Name          string
	ClassGroupID  string
	AdmissionDate Date // zero value = unknown; generation falls back to Jan 1 of the academic year
}

// amountOrZero coalesces an absent amount to zero so that aggregation never
// propagates a null into a monetary sum.
func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
