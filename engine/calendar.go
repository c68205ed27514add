/*
calendar.go - Day-granularity dates and the strict one-month step

PURPOSE:
  Provides the Date value type used everywhere in the engine, plus the
  calendar stepping rule that defines billing period boundaries.

THE STRICT MONTH STEP:
  AdvanceOneMonth preserves the day-of-month when the target month has
  that day. When it does not (e.g., the 31st stepping into a 30-day
  month, or into February), the result is the FIRST day of the month
  AFTER the target month - not the last valid day of the target month.

  AdvanceOneMonth(2024-01-15) == 2024-02-15
  AdvanceOneMonth(2024-01-31) == 2024-03-01

  This rule compounds: repeated steps from a month-end date drift onto
  first-of-month anchors. It is a collections business rule, not a
  generic calendar convention, and must not be "fixed".

UNKNOWN DATES:
  Upstream data has missing and unparseable dates. The zero Date means
  "unknown"; comparisons against it are false, mirroring how the source
  data behaves. Required-date validation happens in schedule.go.

SEE ALSO:
  - schedule.go: Uses AdvanceOneMonth to walk billing periods
  - status.go: Uses the clamped month-add for the full-period test
*/
package engine

import "time"

// =============================================================================
// DATE - Day-granularity point in time (always UTC)
// =============================================================================

// Date is a calendar day. The zero value means "unknown".
type Date struct {
	Time time.Time
}

// NewDate builds a known Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current day in UTC. Only the HTTP/CLI edge should
// call this - the engine always receives an explicit reference date.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// Known reports whether the date carries a real value.
func (d Date) Known() bool { return !d.Time.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison. All comparisons involving an unknown date are false,
// matching the null-propagation of the upstream data set.
func (d Date) Before(other Date) bool {
	if !d.Known() || !other.Known() {
		return false
	}
	return d.normalize().Before(other.normalize())
}

func (d Date) After(other Date) bool {
	if !d.Known() || !other.Known() {
		return false
	}
	return d.normalize().After(other.normalize())
}

func (d Date) Equal(other Date) bool {
	if !d.Known() || !other.Known() {
		return false
	}
	return d.normalize().Equal(other.normalize())
}

func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.normalize().AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }

// WithDay returns the date with its day-of-month replaced. The second
// return is false when that day does not exist in the month.
func (d Date) WithDay(day int) (Date, bool) {
	if day < 1 || day > daysInMonth(d.Year(), d.Month()) {
		return Date{}, false
	}
	return NewDate(d.Year(), d.Month(), day), true
}

func (d Date) String() string {
	if !d.Known() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// =============================================================================
// MONTH STEPPING
// =============================================================================

// AdvanceOneMonth returns the date one calendar month later, preserving
// the day-of-month. If the target month is too short for that day, the
// result is the first day of the month after the target month.
func AdvanceOneMonth(d Date) Date {
	year, month, day := d.Year(), d.Month(), d.Day()

	month++
	if month > time.December {
		month = time.January
		year++
	}

	if day <= daysInMonth(year, month) {
		return NewDate(year, month, day)
	}

	month++
	if month > time.December {
		month = time.January
		year++
	}
	return NewDate(year, month, 1)
}

// addMonthClamped is standard calendar arithmetic: same day next month,
// clamped to the last day when the month is shorter. Only the
// full-period test in status.go uses this; period boundaries always use
// AdvanceOneMonth.
func addMonthClamped(d Date) Date {
	year, month, day := d.Year(), d.Month(), d.Day()

	month++
	if month > time.December {
		month = time.January
		year++
	}

	if max := daysInMonth(year, month); day > max {
		day = max
	}
	return NewDate(year, month, day)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate coerces upstream date text into a Date. Unparseable or
// empty input yields the unknown Date rather than an error; whether an
// unknown date is acceptable depends on where it is used.
func ParseDate(s string) Date {
	s = trimmed(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006/01/02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}
