package engine

import (
	"testing"
	"time"
)

// =============================================================================
// STRICT MONTH STEP
// =============================================================================

func TestAdvanceOneMonth_DayExists_PreservesDay(t *testing.T) {
	got := AdvanceOneMonth(NewDate(2024, time.January, 15))
	want := NewDate(2024, time.February, 15)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAdvanceOneMonth_DayMissing_FirstOfFollowingMonth(t *testing.T) {
	// 2024 is a leap year: February has 29 days, so day 31 is invalid and
	// the step lands on March 1 - NOT on February 29.
	got := AdvanceOneMonth(NewDate(2024, time.January, 31))
	want := NewDate(2024, time.March, 1)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAdvanceOneMonth_ThirtyFirstIntoThirtyDayMonth(t *testing.T) {
	got := AdvanceOneMonth(NewDate(2024, time.March, 31))
	want := NewDate(2024, time.May, 1)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAdvanceOneMonth_YearBoundary(t *testing.T) {
	got := AdvanceOneMonth(NewDate(2024, time.December, 15))
	want := NewDate(2025, time.January, 15)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAdvanceOneMonth_NovemberThirtieth_DecemberFallback(t *testing.T) {
	// Day 31 invalid in November -> first of December.
	got := AdvanceOneMonth(NewDate(2024, time.October, 31))
	want := NewDate(2024, time.December, 1)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAdvanceOneMonth_ChainDriftsToFirstOfMonth(t *testing.T) {
	// A chain from Jan 31 drifts: Jan 31 -> Mar 1 -> Apr 1 -> May 1.
	// Once the fallback fires, the anchor stays on the first.
	d := NewDate(2024, time.January, 31)
	want := []Date{
		NewDate(2024, time.March, 1),
		NewDate(2024, time.April, 1),
		NewDate(2024, time.May, 1),
	}
	for i, w := range want {
		d = AdvanceOneMonth(d)
		if !d.Equal(w) {
			t.Fatalf("step %d: expected %s, got %s", i+1, w, d)
		}
	}
}

// =============================================================================
// CLAMPED MONTH ADD (full-period test arithmetic)
// =============================================================================

func TestAddMonthClamped_ClampsToMonthEnd(t *testing.T) {
	got := addMonthClamped(NewDate(2024, time.January, 31))
	want := NewDate(2024, time.February, 29)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// =============================================================================
// DATE SEMANTICS
// =============================================================================

func TestDate_UnknownComparesFalse(t *testing.T) {
	var unknown Date
	known := NewDate(2025, time.May, 30)

	if unknown.Before(known) || unknown.After(known) || unknown.Equal(known) {
		t.Error("comparisons against an unknown date must be false")
	}
	if known.Before(unknown) || known.After(unknown) {
		t.Error("comparisons against an unknown date must be false")
	}
}

func TestDate_WithDay(t *testing.T) {
	d := NewDate(2024, time.February, 10)

	if got, ok := d.WithDay(29); !ok || !got.Equal(NewDate(2024, time.February, 29)) {
		t.Errorf("expected 2024-02-29, got %s (ok=%v)", got, ok)
	}
	if _, ok := d.WithDay(30); ok {
		t.Error("day 30 must not exist in February 2024")
	}
	if _, ok := d.WithDay(0); ok {
		t.Error("day 0 must never be valid")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2025-05-30", NewDate(2025, time.May, 30)},
		{" 2025-05-30 ", NewDate(2025, time.May, 30)},
		{"2025-05-30 00:00:00", NewDate(2025, time.May, 30)},
		{"", Date{}},
		{"not a date", Date{}},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		if got.Known() != tt.want.Known() || (got.Known() && !got.Equal(tt.want)) {
			t.Errorf("ParseDate(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
