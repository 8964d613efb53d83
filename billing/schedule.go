/*
schedule.go - Fee schedule generation

PURPOSE:
  Derives the set of billing periods a student owes for an academic year
  from the student's active fee cycles and admission date, and persists
  them idempotently.

WINDOWING RULES:
  The academic year is modeled as Jan 1 - Dec 31 of the anchor year. For
  each active cycle:

    window_start = max(admission_date, cycle.effective_from)
    window_end   = min(cycle.effective_to or year end, Dec 31 of the year)

  monthly:   one period per calendar month, starting from the first day of
             the month CONTAINING window_start, until the month start
             passes window_end. A student admitted mid-month is billed for
             the whole admission month.
  quarterly: four fixed calendar quarters; a quarter is included iff its
             START date is on/after the admission date and effective_from,
             and on/before effective_to when one is set. The comparison is
             deliberately against the quarter start, not its end: a quarter
             already underway at admission is skipped even though it
             overlaps the admission date.
  yearly:    a single Jan 1 - Dec 31 period under the same start-date rule.
  one-time:  never generates periods; a separate one-off flow bills these.

IDEMPOTENCE:
  Persistence is an insert-if-absent upsert on the natural key
  (student, period_type, year, month, quarter). Pre-existing rows are not
  an error: regeneration (re-sync, duplicate scheduling triggers) must be
  safely repeatable, so conflicts are counted and logged, never raised.
*/
package billing

import (
	"context"
	"log"
)

// Generator derives and persists billing periods.
type Generator struct {
	Store  Store
	Logger *log.Logger // nil = log.Default()
}

func NewGenerator(store Store) *Generator {
	return &Generator{Store: store}
}

// ScheduleResult reports the outcome of one generation run. Conflicts counts
// periods that already existed under their natural key; they are a normal,
// non-fatal outcome of regeneration.
type ScheduleResult struct {
	Periods   []BillingPeriod
	Inserted  int
	Conflicts int
}

// GenerateStudentFeeSchedule generates the billing periods the student owes
// for the academic year and upserts them in pending status.
//
// Student and fee-cycle lookup failures are caller-visible errors. Upsert
// failures are not: they are logged and generation continues, returning the
// in-memory period list regardless of how many rows already existed.
func (g *Generator) GenerateStudentFeeSchedule(ctx context.Context, studentID StudentID, schoolID SchoolID, academicYear int) (*ScheduleResult, error) {
	student, err := g.Store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, &LookupError{StudentID: studentID, Resource: "students", Err: err}
	}
	if student == nil {
		return nil, &LookupError{StudentID: studentID, Resource: "students", Err: ErrStudentNotFound}
	}

	admission := student.AdmissionDate
	if admission.IsZero() {
		admission = StartOfYear(academicYear)
	}

	cycles, err := g.Store.ActiveCycles(ctx, studentID)
	if err != nil {
		return nil, &LookupError{StudentID: studentID, Resource: "student_fee_cycles", Err: err}
	}
	if len(cycles) == 0 {
		cycles = []FeeCycle{g.synthesizeDefaultCycle(ctx, studentID, schoolID, academicYear)}
	}

	// Many cycles may cover overlapping ranges over a student's history;
	// dedupe by natural key so at most one period per key is ever emitted.
	seen := make(map[string]bool)
	var periods []BillingPeriod
	for _, c := range cycles {
		for _, p := range periodsForCycle(c, admission, academicYear) {
			k := p.NaturalKey()
			if seen[k] {
				continue
			}
			seen[k] = true
			periods = append(periods, p)
		}
	}

	result := &ScheduleResult{Periods: periods}
	for _, p := range periods {
		inserted, err := g.Store.UpsertPeriod(ctx, p)
		switch {
		case err != nil && IsConflict(err):
			result.Conflicts++
			g.logf("[Generator] period exists for student %s: %s", studentID, p.NaturalKey())
		case err != nil:
			g.logf("[Generator] period upsert failed for student %s (%s), continuing: %v", studentID, p.NaturalKey(), err)
		case inserted:
			result.Inserted++
		default:
			result.Conflicts++
		}
	}
	return result, nil
}

// synthesizeDefaultCycle creates the default monthly cycle for a student with
// no cycle configuration: effective from Jan 1 of the academic year,
// open-ended. The insert is best-effort; a collision (e.g. a concurrent
// generator run won the race) is benign and the in-memory cycle is used
// either way.
func (g *Generator) synthesizeDefaultCycle(ctx context.Context, studentID StudentID, schoolID SchoolID, academicYear int) FeeCycle {
	def := FeeCycle{
		StudentID:     studentID,
		SchoolID:      schoolID,
		CycleType:     CycleMonthly,
		EffectiveFrom: StartOfYear(academicYear),
		IsActive:      true,
	}
	if err := g.Store.InsertCycle(ctx, def); err != nil {
		if IsConflict(err) {
			g.logf("[Generator] default cycle exists for student %s", studentID)
		} else {
			g.logf("[Generator] default cycle insert failed for student %s, continuing: %v", studentID, err)
		}
	}
	return def
}

// periodsForCycle emits the periods one cycle contributes to the academic
// year. Pure; persistence and cross-cycle dedupe happen in the caller.
func periodsForCycle(c FeeCycle, admission Date, academicYear int) []BillingPeriod {
	yearStart := StartOfYear(academicYear)
	yearEnd := EndOfYear(academicYear)

	base := BillingPeriod{
		StudentID: c.StudentID,
		SchoolID:  c.SchoolID,
		Status:    StatusPending,
	}

	var periods []BillingPeriod
	switch c.CycleType {
	case CycleMonthly:
		windowStart := MaxDate(admission, c.EffectiveFrom)
		windowEnd := yearEnd
		if c.EffectiveTo != nil {
			windowEnd = MinDate(*c.EffectiveTo, yearEnd)
		}
		cursor := StartOfMonth(windowStart.Year(), windowStart.Month())
		for !cursor.After(windowEnd) {
			p := base
			p.PeriodType = PeriodMonthly
			p.PeriodYear = cursor.Year()
			p.PeriodMonth = int(cursor.Month())
			p.PeriodStart = cursor
			p.PeriodEnd = EndOfMonth(cursor.Year(), cursor.Month())
			p.ID = PeriodID(p.NaturalKey())
			periods = append(periods, p)
			cursor = cursor.AddMonths(1)
		}

	case CycleQuarterly:
		for q := 1; q <= 4; q++ {
			qStart, qEnd := QuarterBounds(academicYear, q)
			if !startDateIncluded(qStart, admission, c) {
				continue
			}
			p := base
			p.PeriodType = PeriodQuarterly
			p.PeriodYear = academicYear
			p.PeriodQuarter = q
			p.PeriodStart = qStart
			p.PeriodEnd = qEnd
			p.ID = PeriodID(p.NaturalKey())
			periods = append(periods, p)
		}

	case CycleYearly:
		if startDateIncluded(yearStart, admission, c) {
			p := base
			p.PeriodType = PeriodYearly
			p.PeriodYear = academicYear
			p.PeriodStart = yearStart
			p.PeriodEnd = yearEnd
			p.ID = PeriodID(p.NaturalKey())
			periods = append(periods, p)
		}

	case CycleOneTime:
		// Handled by a separate one-off billing flow.
	}
	return periods
}

// startDateIncluded is the quarterly/yearly boundary rule: only the period's
// START date is tested against the admission date and the cycle's effective
// range. A period already underway when the cycle becomes effective is
// skipped, not prorated.
func startDateIncluded(start, admission Date, c FeeCycle) bool {
	if start.Before(admission) || start.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && start.After(*c.EffectiveTo) {
		return false
	}
	return true
}

func (g *Generator) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
