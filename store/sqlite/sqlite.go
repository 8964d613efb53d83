/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Implements the billing engine's persistence interface using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences (ON CONFLICT syntax is shared).

IDEMPOTENCE ENFORCEMENT:
  fee_bill_periods carries a unique index on the natural key
  (student_id, period_type, period_year, period_month, period_quarter).
  UpsertPeriod uses INSERT ... ON CONFLICT DO NOTHING, so concurrent
  generation for the same student resolves at the database without any
  read-then-write pattern. Absent month/quarter components are stored as
  zero, not NULL: SQLite treats NULLs as distinct inside a unique index,
  which would silently break the idempotence key.

MARK-OVERDUE PROCEDURE:
  MarkOverduePeriods is the server-side promotion procedure: a single
  statement that moves billed/partially-paid periods to overdue when the
  bill's due date has passed and the live balance (net amount minus the
  sum of payments) is still positive. Callers treat it as opaque.

WAL MODE:
  SQLite is opened with WAL so readers don't block and a single writer
  proceeds at a time.

USAGE:
  store, err := sqlite.New("./data/fees.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  gen := billing.NewGenerator(store)

SEE ALSO:
  - billing/store.go: Interface definition
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Students (read dependency of the generator)
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		class_group_id TEXT,
		admission_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_school
		ON students(school_id);

	-- Fee cycle configuration
	CREATE TABLE IF NOT EXISTS student_fee_cycles (
		student_id TEXT NOT NULL,
		school_id TEXT NOT NULL,
		fee_cycle TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		UNIQUE(student_id, fee_cycle, effective_from)
	);

	CREATE INDEX IF NOT EXISTS idx_fee_cycles_student
		ON student_fee_cycles(student_id, is_active);

	-- Billing periods
	-- Natural key: absent month/quarter stored as 0, never NULL, so the
	-- unique index actually enforces idempotence.
	CREATE TABLE IF NOT EXISTS fee_bill_periods (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		school_id TEXT NOT NULL,
		period_type TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		period_month INTEGER NOT NULL DEFAULT 0,
		period_quarter INTEGER NOT NULL DEFAULT 0,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		expected_amount TEXT,
		paid_amount TEXT,
		balance_amount TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(student_id, period_type, period_year, period_month, period_quarter)
	);

	CREATE INDEX IF NOT EXISTS idx_periods_student_start
		ON fee_bill_periods(student_id, period_start);
	CREATE INDEX IF NOT EXISTS idx_periods_status
		ON fee_bill_periods(status);

	-- Issued bills (at most one per period)
	CREATE TABLE IF NOT EXISTS fee_bills (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL UNIQUE REFERENCES fee_bill_periods(id),
		due_date TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bills_due_date
		ON fee_bills(due_date);

	-- Payments against bills
	CREATE TABLE IF NOT EXISTS fee_payments (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL REFERENCES fee_bills(id),
		amount_paid TEXT NOT NULL,
		paid_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_bill
		ON fee_payments(bill_id);

	-- Overdue marking runs (scheduler audit trail)
	CREATE TABLE IF NOT EXISTS overdue_runs (
		id TEXT PRIMARY KEY,
		marked INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		ran_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STUDENTS
// =============================================================================

// InsertStudent creates a student record.
func (s *Store) InsertStudent(ctx context.Context, st billing.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO students (id, school_id, name, class_group_id, admission_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.SchoolID, st.Name, st.ClassGroupID,
		nullDate(st.AdmissionDate), now())
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrPersistenceConflict
		}
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

// GetStudent returns the student or (nil, nil) when absent.
func (s *Store) GetStudent(ctx context.Context, id billing.StudentID) (*billing.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, school_id, name, COALESCE(class_group_id, ''), admission_date
		FROM students WHERE id = ?
	`
	var st billing.Student
	var admission sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&st.ID, &st.SchoolID, &st.Name, &st.ClassGroupID, &admission)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if admission.Valid {
		st.AdmissionDate, err = billing.ParseDate(admission.String)
		if err != nil {
			return nil, fmt.Errorf("bad admission_date for student %s: %w", id, err)
		}
	}
	return &st, nil
}

// ListStudents returns students for a school (all schools when schoolID is empty).
func (s *Store) ListStudents(ctx context.Context, schoolID billing.SchoolID) ([]billing.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, school_id, name, COALESCE(class_group_id, ''), admission_date
		FROM students
		WHERE (? = '' OR school_id = ?)
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, schoolID, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []billing.Student
	for rows.Next() {
		var st billing.Student
		var admission sql.NullString
		if err := rows.Scan(&st.ID, &st.SchoolID, &st.Name, &st.ClassGroupID, &admission); err != nil {
			return nil, err
		}
		if admission.Valid {
			if st.AdmissionDate, err = billing.ParseDate(admission.String); err != nil {
				return nil, fmt.Errorf("bad admission_date for student %s: %w", st.ID, err)
			}
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// =============================================================================
// FEE CYCLES
// =============================================================================

func (s *Store) InsertCycle(ctx context.Context, c billing.FeeCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO student_fee_cycles
		(student_id, school_id, fee_cycle, effective_from, effective_to, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var effectiveTo any
	if c.EffectiveTo != nil {
		effectiveTo = c.EffectiveTo.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		c.StudentID, c.SchoolID, c.CycleType,
		c.EffectiveFrom.String(), effectiveTo, c.IsActive, now())
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrPersistenceConflict
		}
		return fmt.Errorf("failed to insert fee cycle: %w", err)
	}
	return nil
}

func (s *Store) ActiveCycles(ctx context.Context, id billing.StudentID) ([]billing.FeeCycle, error) {
	return s.cyclesByStudent(ctx, id, true)
}

// CyclesByStudent returns all of a student's cycles, active or not.
func (s *Store) CyclesByStudent(ctx context.Context, id billing.StudentID) ([]billing.FeeCycle, error) {
	return s.cyclesByStudent(ctx, id, false)
}

func (s *Store) cyclesByStudent(ctx context.Context, id billing.StudentID, activeOnly bool) ([]billing.FeeCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT student_id, school_id, fee_cycle, effective_from, effective_to, is_active
		FROM student_fee_cycles
		WHERE student_id = ? AND (? = FALSE OR is_active = TRUE)
		ORDER BY effective_from ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee cycles: %w", err)
	}
	defer rows.Close()

	var cycles []billing.FeeCycle
	for rows.Next() {
		var c billing.FeeCycle
		var from string
		var to sql.NullString
		if err := rows.Scan(&c.StudentID, &c.SchoolID, &c.CycleType, &from, &to, &c.IsActive); err != nil {
			return nil, err
		}
		if c.EffectiveFrom, err = billing.ParseDate(from); err != nil {
			return nil, fmt.Errorf("bad effective_from for student %s: %w", id, err)
		}
		if to.Valid {
			d, err := billing.ParseDate(to.String)
			if err != nil {
				return nil, fmt.Errorf("bad effective_to for student %s: %w", id, err)
			}
			c.EffectiveTo = &d
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// =============================================================================
// BILLING PERIODS
// =============================================================================

// UpsertPeriod inserts a period if no row exists under its natural key.
// The conflict resolves inside the database; inserted=false means the row
// was already there, which is not an error.
func (s *Store) UpsertPeriod(ctx context.Context, p billing.BillingPeriod) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = billing.PeriodID(p.NaturalKey())
	}
	query := `
		INSERT INTO fee_bill_periods
		(id, student_id, school_id, period_type, period_year, period_month, period_quarter,
		 period_start, period_end, status, expected_amount, paid_amount, balance_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(student_id, period_type, period_year, period_month, period_quarter) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		p.ID, p.StudentID, p.SchoolID, p.PeriodType,
		p.PeriodYear, p.PeriodMonth, p.PeriodQuarter,
		p.PeriodStart.String(), p.PeriodEnd.String(), p.Status,
		nullAmount(p.ExpectedAmount), nullAmount(p.PaidAmount), nullAmount(p.BalanceAmount),
		now())
	if err != nil {
		return false, fmt.Errorf("failed to upsert period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) PeriodsByStudent(ctx context.Context, id billing.StudentID) ([]billing.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, student_id, school_id, period_type, period_year, period_month, period_quarter,
		       period_start, period_end, status, expected_amount, paid_amount, balance_amount
		FROM fee_bill_periods
		WHERE student_id = ?
		ORDER BY period_start ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []billing.BillingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *Store) GetPeriod(ctx context.Context, id billing.PeriodID) (*billing.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, student_id, school_id, period_type, period_year, period_month, period_quarter,
		       period_start, period_end, status, expected_amount, paid_amount, balance_amount
		FROM fee_bill_periods
		WHERE id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query period: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPeriod(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePeriodStatus(ctx context.Context, id billing.PeriodID, status billing.PeriodStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE fee_bill_periods SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update period status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrPeriodNotFound
	}
	return nil
}

func (s *Store) UpdatePeriodAmounts(ctx context.Context, id billing.PeriodID, expected, paid, balance *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE fee_bill_periods SET
			expected_amount = COALESCE(?, expected_amount),
			paid_amount     = COALESCE(?, paid_amount),
			balance_amount  = COALESCE(?, balance_amount)
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		nullAmount(expected), nullAmount(paid), nullAmount(balance), id)
	if err != nil {
		return fmt.Errorf("failed to update period amounts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrPeriodNotFound
	}
	return nil
}

// =============================================================================
// BILLS AND PAYMENTS
// =============================================================================

func (s *Store) InsertBill(ctx context.Context, b billing.FeeBill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO fee_bills (id, period_id, due_date, net_amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.PeriodID, b.DueDate.String(), b.NetAmount.String(), now())
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrPersistenceConflict
		}
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

func (s *Store) GetBill(ctx context.Context, id billing.BillID) (*billing.FeeBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, period_id, due_date, net_amount FROM fee_bills WHERE id = ?`
	var b billing.FeeBill
	var due, net string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.PeriodID, &due, &net)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	if b.DueDate, err = billing.ParseDate(due); err != nil {
		return nil, fmt.Errorf("bad due_date for bill %s: %w", id, err)
	}
	if b.NetAmount, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("bad net_amount for bill %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) BillsByStudent(ctx context.Context, id billing.StudentID) ([]billing.FeeBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT b.id, b.period_id, b.due_date, b.net_amount
		FROM fee_bills b
		JOIN fee_bill_periods p ON p.id = b.period_id
		WHERE p.student_id = ?
		ORDER BY b.due_date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []billing.FeeBill
	for rows.Next() {
		var b billing.FeeBill
		var due, net string
		if err := rows.Scan(&b.ID, &b.PeriodID, &due, &net); err != nil {
			return nil, err
		}
		if b.DueDate, err = billing.ParseDate(due); err != nil {
			return nil, fmt.Errorf("bad due_date for bill %s: %w", b.ID, err)
		}
		if b.NetAmount, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("bad net_amount for bill %s: %w", b.ID, err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (s *Store) InsertPayment(ctx context.Context, p billing.FeePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO fee_payments (id, bill_id, amount_paid, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.BillID, p.AmountPaid.String(), nullDate(p.PaidAt), now())
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrPersistenceConflict
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsByBill(ctx context.Context, id billing.BillID) ([]billing.FeePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, bill_id, amount_paid, paid_at
		FROM fee_payments
		WHERE bill_id = ?
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.FeePayment
	for rows.Next() {
		var p billing.FeePayment
		var amount string
		var paidAt sql.NullString
		if err := rows.Scan(&p.ID, &p.BillID, &amount, &paidAt); err != nil {
			return nil, err
		}
		if p.AmountPaid, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount_paid for payment %s: %w", p.ID, err)
		}
		if paidAt.Valid {
			if p.PaidAt, err = billing.ParseDate(paidAt.String); err != nil {
				return nil, fmt.Errorf("bad paid_at for payment %s: %w", p.ID, err)
			}
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// MARK OVERDUE PROCEDURE
// =============================================================================

// MarkOverduePeriods promotes billed/partially-paid periods to overdue when
// the bill's due date has passed and money is still outstanding. The balance
// is computed live against the payments table inside the statement.
func (s *Store) MarkOverduePeriods(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE fee_bill_periods
		SET status = 'overdue'
		WHERE status IN ('billed', 'partially-paid')
		  AND id IN (
			SELECT p.id
			FROM fee_bill_periods p
			JOIN fee_bills b ON b.period_id = p.id
			LEFT JOIN fee_payments pay ON pay.bill_id = b.id
			WHERE DATE(b.due_date) < DATE('now')
			GROUP BY p.id, b.net_amount
			HAVING CAST(b.net_amount AS REAL) - COALESCE(SUM(CAST(pay.amount_paid AS REAL)), 0) > 0
		  )
	`
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("mark_overdue_periods: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// RecordOverdueRun stores a scheduler run for audit/UI display.
func (s *Store) RecordOverdueRun(ctx context.Context, id string, marked int, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO overdue_runs (id, marked, error, ran_at) VALUES (?, ?, ?, ?)",
		id, marked, errText, now())
	return err
}

// OverdueRun is one recorded invocation of the mark-overdue procedure.
type OverdueRun struct {
	ID     string
	Marked int
	Error  string
	RanAt  time.Time
}

// ListOverdueRuns returns run history, newest first.
func (s *Store) ListOverdueRuns(ctx context.Context, limit int) ([]OverdueRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, marked, COALESCE(error, ''), ran_at FROM overdue_runs ORDER BY ran_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue runs: %w", err)
	}
	defer rows.Close()

	var runs []OverdueRun
	for rows.Next() {
		var r OverdueRun
		var ranAt string
		if err := rows.Scan(&r.ID, &r.Marked, &r.Error, &ranAt); err != nil {
			return nil, err
		}
		r.RanAt, _ = time.Parse(time.RFC3339, ranAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(r rowScanner) (billing.BillingPeriod, error) {
	var p billing.BillingPeriod
	var start, end string
	var expected, paid, balance sql.NullString
	err := r.Scan(&p.ID, &p.StudentID, &p.SchoolID, &p.PeriodType,
		&p.PeriodYear, &p.PeriodMonth, &p.PeriodQuarter,
		&start, &end, &p.Status, &expected, &paid, &balance)
	if err != nil {
		return p, err
	}
	if p.PeriodStart, err = billing.ParseDate(start); err != nil {
		return p, fmt.Errorf("bad period_start for period %s: %w", p.ID, err)
	}
	if p.PeriodEnd, err = billing.ParseDate(end); err != nil {
		return p, fmt.Errorf("bad period_end for period %s: %w", p.ID, err)
	}
	if p.ExpectedAmount, err = parseAmount(expected); err != nil {
		return p, fmt.Errorf("bad expected_amount for period %s: %w", p.ID, err)
	}
	if p.PaidAmount, err = parseAmount(paid); err != nil {
		return p, fmt.Errorf("bad paid_amount for period %s: %w", p.ID, err)
	}
	if p.BalanceAmount, err = parseAmount(balance); err != nil {
		return p, fmt.Errorf("bad balance_amount for period %s: %w", p.ID, err)
	}
	return p, nil
}

func parseAmount(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullAmount(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDate(d billing.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

var _ billing.Store = (*Store)(nil)
