/*
store.go - Persistence interface for the billing engine

PURPOSE:
  Defines the narrow interface between the engine and the database. The
  engine never holds a global client; a Store is injected into the
  Generator and LedgerReader so the logic is testable against an
  in-memory fake.

IDEMPOTENCE CONTRACT:
  UpsertPeriod must resolve natural-key collisions at the storage layer
  (insert-if-absent). The generator performs no locking and no
  read-then-write; concurrent generation for the same student must be a
  no-op for pre-existing rows.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  Production SQLite
  - billing/store/memory.go: In-memory for testing
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store handles persistence for the billing engine.
type Store interface {
	// GetStudent returns the student or (nil, nil) when absent.
	GetStudent(ctx context.Context, id StudentID) (*Student, error)

	// ActiveCycles returns the student's active fee cycles.
	ActiveCycles(ctx context.Context, id StudentID) ([]FeeCycle, error)

	// InsertCycle persists a fee cycle. A collision with an existing cycle
	// returns ErrPersistenceConflict.
	InsertCycle(ctx context.Context, c FeeCycle) error

	// UpsertPeriod inserts a billing period if no row exists under its
	// natural key. Returns inserted=false (and no error) when the row was
	// already present.
	UpsertPeriod(ctx context.Context, p BillingPeriod) (inserted bool, err error)

	// PeriodsByStudent returns all of a student's periods ordered by
	// period_start ascending.
	PeriodsByStudent(ctx context.Context, id StudentID) ([]BillingPeriod, error)

	// GetPeriod returns the period or (nil, nil) when absent.
	GetPeriod(ctx context.Context, id PeriodID) (*BillingPeriod, error)

	// UpdatePeriodStatus stores a new status. Lifecycle validation is the
	// caller's job; the store only persists.
	UpdatePeriodStatus(ctx context.Context, id PeriodID, status PeriodStatus) error

	// UpdatePeriodAmounts stores the derived amount columns. nil leaves a
	// column untouched.
	UpdatePeriodAmounts(ctx context.Context, id PeriodID, expected, paid, balance *decimal.Decimal) error

	// InsertBill persists an issued bill. A second bill for the same period
	// returns ErrPersistenceConflict.
	InsertBill(ctx context.Context, b FeeBill) error

	// GetBill returns the bill or (nil, nil) when absent.
	GetBill(ctx context.Context, id BillID) (*FeeBill, error)

	// BillsByStudent returns the bills attached to a student's periods.
	BillsByStudent(ctx context.Context, id StudentID) ([]FeeBill, error)

	// InsertPayment persists a payment against a bill.
	InsertPayment(ctx context.Context, p FeePayment) error

	// PaymentsByBill returns all payments for a bill.
	PaymentsByBill(ctx context.Context, id BillID) ([]FeePayment, error)

	// MarkOverduePeriods invokes the server-side overdue promotion
	// procedure and returns the number of periods it marked. The engine
	// treats the procedure as opaque: it does not reimplement the logic
	// and propagates failures unchanged in effect.
	MarkOverduePeriods(ctx context.Context) (int, error)
}
