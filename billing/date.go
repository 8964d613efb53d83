package billing

import "time"

// =============================================================================
// DATE - Immutable calendar date (no time-of-day, no timezone)
// =============================================================================

// Date is a calendar date. It is always normalized to UTC midnight so that
// comparisons only ever consider the date portion. All date arithmetic in the
// billing engine goes through this type; handing raw time.Time values around
// is how timezone drift sneaks into boundary comparisons.
type Date struct {
	t time.Time
}

const isoDate = "2006-01-02"

// NewDate constructs a Date. Out-of-range day values normalize the same way
// time.Date does: NewDate(2024, time.February, 31) is March 2.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD string, the wire format used at the
// storage boundary.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// Today returns the current date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }
func (d Date) IsZero() bool                  { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// WithDay returns the date with its day-of-month replaced. Days past the end
// of the month roll into the following month (time.Date normalization), which
// matches the set-day semantics the due-date rule depends on.
func (d Date) WithDay(day int) Date {
	return NewDate(d.t.Year(), d.t.Month(), day)
}

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

func (d Date) String() string {
	return d.t.Format(isoDate)
}

// =============================================================================
// CALENDAR BOUNDARIES
// =============================================================================

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}

// QuarterBounds returns the fixed calendar quarter for an academic year:
// Q1 Jan1-Mar31, Q2 Apr1-Jun30, Q3 Jul1-Sep30, Q4 Oct1-Dec31.
func QuarterBounds(year, quarter int) (Date, Date) {
	startMonth := time.Month((quarter-1)*3 + 1)
	endMonth := startMonth + 2
	return StartOfMonth(year, startMonth), EndOfMonth(year, endMonth)
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}
