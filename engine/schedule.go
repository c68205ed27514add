/*
schedule.go - Billing period generation

PURPOSE:
  Resolves a policy's anchor (the first billing period's start) from its
  collection attributes, then walks forward one strict month at a time
  to produce the expected period sequence up to the reference date.

ANCHOR RULES:
  PayAt:
    inception before 2022-01-01 OR after the reference date
      -> anchor = first collection date
    otherwise
      -> anchor = inception date
    (An unknown inception fails both comparisons, lands on the inception
    branch, and surfaces as a validation error.)

  Direct Debit:
    candidate = inception with day replaced by the preferred collection
    day; if that day does not exist in the inception month, candidate =
    AdvanceOneMonth(inception). The anchor is the candidate when it is
    strictly after inception, else AdvanceOneMonth(candidate).

  Anything else: ConfigurationError - no schedule is derivable.

PERIOD WALK:
  anchor after reference  -> exactly one period, payments unknowable yet
  anchor == reference     -> exactly one single-day period
  anchor before reference -> [start, AdvanceOneMonth(start)-1d] clipped
                             to the reference date, repeated while the
                             next start is before the reference date

INVARIANTS:
  - Adjacent periods are contiguous: period[i].End + 1 day == period[i+1].Start
  - Exactly one period exists when the anchor is after the reference date
  - The walk is a pure function of the policy and the reference date
*/
package engine

import "time"

// payAtInceptionFloor splits PayAt policies between legacy first-collection
// billing and inception-anchored billing.
var payAtInceptionFloor = NewDate(2022, time.January, 1)

// Schedule is the resolved billing timeline for one sub-policy.
type Schedule struct {
	Anchor  Date
	Periods []Period

	// FutureAnchor marks the anchor-after-reference case: one period,
	// no payments expected yet.
	FutureAnchor bool

	// CollectionDay is the effective day-of-month for direct debit due
	// dates: the parsed preferred day when it lies in (0,32), else the
	// anchor's own day.
	CollectionDay int
}

// BuildSchedule derives the expected billing periods for a policy as of
// the reference date.
func BuildSchedule(p Policy, referenceDate Date) (Schedule, error) {
	anchor, err := resolveAnchor(p, referenceDate)
	if err != nil {
		return Schedule{}, err
	}
	if !anchor.Known() {
		return Schedule{}, &ValidationError{
			Certificate: p.Certificate,
			Reason:      "could not determine first billing period start",
		}
	}

	s := Schedule{Anchor: anchor, CollectionDay: effectiveCollectionDay(p, anchor)}

	switch {
	case anchor.After(referenceDate):
		s.FutureAnchor = true
		s.Periods = []Period{{Start: anchor, End: AdvanceOneMonth(anchor).AddDays(-1)}}

	case anchor.Equal(referenceDate):
		s.Periods = []Period{{Start: anchor, End: anchor}}

	default:
		start := anchor
		for start.Before(referenceDate) {
			end := AdvanceOneMonth(start).AddDays(-1)
			if end.After(referenceDate) {
				end = referenceDate
			}
			s.Periods = append(s.Periods, Period{Start: start, End: end})
			start = end.AddDays(1)
		}
	}

	return s, nil
}

func resolveAnchor(p Policy, referenceDate Date) (Date, error) {
	switch p.PaymentMethod {
	case MethodPayAt:
		// Note: comparisons against an unknown inception are false, so a
		// missing inception falls through to the inception branch and is
		// rejected by the caller's anchor check.
		if p.InceptionDate.Before(payAtInceptionFloor) || p.InceptionDate.After(referenceDate) {
			return p.FirstCollectionDate, nil
		}
		return p.InceptionDate, nil

	case MethodDirectDebit:
		if !p.InceptionDate.Known() {
			return Date{}, &ValidationError{Certificate: p.Certificate, Reason: "missing inception date"}
		}
		day, ok := ParseCollectionDay(p.PreferredCollectionDay)
		if !ok {
			return Date{}, &ValidationError{Certificate: p.Certificate, Reason: "unparseable preferred collection day"}
		}
		candidate, valid := p.InceptionDate.WithDay(day)
		if !valid {
			candidate = AdvanceOneMonth(p.InceptionDate)
		}
		if candidate.After(p.InceptionDate) {
			return candidate, nil
		}
		return AdvanceOneMonth(candidate), nil

	default:
		return Date{}, &ConfigurationError{Certificate: p.Certificate, Method: p.PaymentMethod}
	}
}

// effectiveCollectionDay normalizes the preferred day for due-date
// arithmetic: outside (0,32) or unparseable falls back to the anchor's
// own day-of-month.
func effectiveCollectionDay(p Policy, anchor Date) int {
	day, ok := ParseCollectionDay(p.PreferredCollectionDay)
	if !ok || day <= 0 || day >= 32 {
		return anchor.Day()
	}
	return day
}
