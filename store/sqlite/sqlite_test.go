package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fee-engine/billing"
	"github.com/warp/fee-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPeriod(t *testing.T, store *sqlite.Store, studentID string, month int, status billing.PeriodStatus) billing.BillingPeriod {
	t.Helper()
	p := billing.BillingPeriod{
		StudentID:   billing.StudentID(studentID),
		SchoolID:    "school-1",
		PeriodType:  billing.PeriodMonthly,
		PeriodYear:  2024,
		PeriodMonth: month,
		PeriodStart: billing.StartOfMonth(2024, time.Month(month)),
		PeriodEnd:   billing.EndOfMonth(2024, time.Month(month)),
		Status:      status,
	}
	p.ID = billing.PeriodID(p.NaturalKey())
	inserted, err := store.UpsertPeriod(context.Background(), p)
	require.NoError(t, err)
	require.True(t, inserted)
	return p
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// NATURAL KEY IDEMPOTENCE
// =============================================================================

func TestUpsertPeriod_DuplicateNaturalKey_NoSecondRow(t *testing.T) {
	// GIVEN: a period already persisted
	store := newTestStore(t)
	p := seedPeriod(t, store, "s1", 3, billing.StatusPending)

	// WHEN: upserting the same natural key again (different id on purpose)
	dup := p
	dup.ID = "different-id"
	inserted, err := store.UpsertPeriod(context.Background(), dup)

	// THEN: no error, no insert, one row
	require.NoError(t, err)
	assert.False(t, inserted)

	periods, err := store.PeriodsByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, periods, 1)
	assert.Equal(t, p.ID, periods[0].ID)
}

func TestUpsertPeriod_MonthlyAndQuarterly_DistinctKeys(t *testing.T) {
	// Monthly month=3 and quarterly quarter=1 must not collide even though
	// both carry a zero in the unused key component.
	store := newTestStore(t)
	seedPeriod(t, store, "s1", 3, billing.StatusPending)

	q := billing.BillingPeriod{
		StudentID:     "s1",
		SchoolID:      "school-1",
		PeriodType:    billing.PeriodQuarterly,
		PeriodYear:    2024,
		PeriodQuarter: 1,
		Status:        billing.StatusPending,
	}
	q.PeriodStart, q.PeriodEnd = billing.QuarterBounds(2024, 1)
	q.ID = billing.PeriodID(q.NaturalKey())

	inserted, err := store.UpsertPeriod(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, inserted)
}

// =============================================================================
// SCANNING AND ORDERING
// =============================================================================

func TestPeriodsByStudent_OrderedByStart_NullAmounts(t *testing.T) {
	store := newTestStore(t)
	seedPeriod(t, store, "s1", 9, billing.StatusPending)
	seedPeriod(t, store, "s1", 2, billing.StatusPending)
	seedPeriod(t, store, "s1", 5, billing.StatusPending)

	periods, err := store.PeriodsByStudent(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, periods, 3)
	assert.Equal(t, 2, periods[0].PeriodMonth)
	assert.Equal(t, 5, periods[1].PeriodMonth)
	assert.Equal(t, 9, periods[2].PeriodMonth)

	// Unpopulated amount columns scan as nil, not zero
	assert.Nil(t, periods[0].ExpectedAmount)
	assert.Nil(t, periods[0].PaidAmount)
	assert.Nil(t, periods[0].BalanceAmount)
}

func TestUpdatePeriodAmounts_PartialUpdate(t *testing.T) {
	store := newTestStore(t)
	p := seedPeriod(t, store, "s1", 1, billing.StatusBilled)
	ctx := context.Background()

	expected := mustDec("1200.50")
	require.NoError(t, store.UpdatePeriodAmounts(ctx, p.ID, &expected, nil, nil))

	got, err := store.GetPeriod(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpectedAmount)
	assert.True(t, got.ExpectedAmount.Equal(expected))
	assert.Nil(t, got.PaidAmount) // untouched
}

// =============================================================================
// STUDENTS AND CYCLES
// =============================================================================

func TestStudent_InsertGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	st := billing.Student{
		ID:            "s1",
		SchoolID:      "school-1",
		Name:          "Amina K",
		ClassGroupID:  "p4",
		AdmissionDate: billing.NewDate(2024, time.June, 15),
	}
	require.NoError(t, store.InsertStudent(ctx, st))

	got, err := store.GetStudent(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Amina K", got.Name)
	assert.Equal(t, "2024-06-15", got.AdmissionDate.String())

	// Duplicate insert is a conflict, not a generic failure
	err = store.InsertStudent(ctx, st)
	assert.ErrorIs(t, err, billing.ErrPersistenceConflict)

	missing, err := store.GetStudent(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestActiveCycles_FiltersInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := billing.FeeCycle{
		StudentID: "s1", SchoolID: "school-1",
		CycleType:     billing.CycleMonthly,
		EffectiveFrom: billing.NewDate(2024, time.January, 1),
		IsActive:      true,
	}
	inactive := billing.FeeCycle{
		StudentID: "s1", SchoolID: "school-1",
		CycleType:     billing.CycleQuarterly,
		EffectiveFrom: billing.NewDate(2023, time.January, 1),
		IsActive:      false,
	}
	require.NoError(t, store.InsertCycle(ctx, active))
	require.NoError(t, store.InsertCycle(ctx, inactive))

	got, err := store.ActiveCycles(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, billing.CycleMonthly, got[0].CycleType)

	all, err := store.CyclesByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// MARK OVERDUE PROCEDURE
// =============================================================================

func TestMarkOverduePeriods_LiveBalanceInsideStatement(t *testing.T) {
	// GIVEN: two past-due billed periods, one fully paid
	store := newTestStore(t)
	ctx := context.Background()

	unpaid := seedPeriod(t, store, "s1", 1, billing.StatusBilled)
	require.NoError(t, store.InsertBill(ctx, billing.FeeBill{
		ID: "b1", PeriodID: unpaid.ID,
		DueDate:   billing.Today().AddDays(-10),
		NetAmount: mustDec("1000"),
	}))

	settled := seedPeriod(t, store, "s1", 2, billing.StatusBilled)
	require.NoError(t, store.InsertBill(ctx, billing.FeeBill{
		ID: "b2", PeriodID: settled.ID,
		DueDate:   billing.Today().AddDays(-10),
		NetAmount: mustDec("1000"),
	}))
	require.NoError(t, store.InsertPayment(ctx, billing.FeePayment{
		ID: "pay1", BillID: "b2", AmountPaid: mustDec("1000"),
	}))

	futureDue := seedPeriod(t, store, "s1", 3, billing.StatusBilled)
	require.NoError(t, store.InsertBill(ctx, billing.FeeBill{
		ID: "b3", PeriodID: futureDue.ID,
		DueDate:   billing.Today().AddDays(10),
		NetAmount: mustDec("1000"),
	}))

	// WHEN
	n, err := store.MarkOverduePeriods(ctx)
	require.NoError(t, err)

	// THEN: only the past-due bill with money outstanding is promoted
	assert.Equal(t, 1, n)

	got, err := store.GetPeriod(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusOverdue, got.Status)

	got, err = store.GetPeriod(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusBilled, got.Status)

	got, err = store.GetPeriod(ctx, futureDue.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusBilled, got.Status)
}

func TestRecordOverdueRun_History(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordOverdueRun(ctx, "run-1", 3, nil))

	runs, err := store.ListOverdueRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Marked)
	assert.Empty(t, runs[0].Error)
}

// =============================================================================
// GENERATOR OVER SQLITE - end-to-end idempotence
// =============================================================================

func TestGenerator_OverSQLite_RerunIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertStudent(ctx, billing.Student{
		ID: "s1", SchoolID: "school-1", Name: "Test",
		AdmissionDate: billing.NewDate(2024, time.January, 1),
	}))

	gen := billing.NewGenerator(store)

	first, err := gen.GenerateStudentFeeSchedule(ctx, "s1", "school-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 12, first.Inserted) // default monthly cycle synthesized

	second, err := gen.GenerateStudentFeeSchedule(ctx, "s1", "school-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 12, second.Conflicts)

	periods, err := store.PeriodsByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, periods, 12)
}
