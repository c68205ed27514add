/*
Package engine implements the payment-period reconciliation engine for
premium collections.

PURPOSE:
  Given a policy's collection attributes, its recorded payment
  transactions, and an explicit reference ("as of") date, the engine
  derives the expected monthly billing periods, matches payments into
  them, and reduces the result to an arrears status - per sub-policy and
  aggregated per policy group.

KEY CONCEPTS IN THIS FILE (types.go):
  - Policy / Transaction: Typed records for the loosely-typed upstream rows
  - PaymentMethod: Closed set of collection channels (PayAt, Direct Debit)
  - Period / PeriodStatus: One expected monthly billing cycle and what
    was paid into it
  - PolicyStatus / GroupStatus: The scalar arrears summaries

DESIGN PRINCIPLES:
  1. Determinism: The reference date is injected, never wall-clock-implicit.
     Evaluating the same inputs twice yields identical results.
  2. Precision: decimal.Decimal for all premium arithmetic.
  3. Explicit unknowns: decimal.NullDecimal and the zero Date stand in
     for the source data's NaN/NaT - "not yet knowable" is never
     conflated with zero.
  4. Purity: Evaluation reads the store and writes nothing.

SEE ALSO:
  - schedule.go: Period generation (anchor resolution + month walk)
  - match.go: Transaction-to-period matching and truncation
  - status.go: Scalar status evaluation
  - group.go: Group-level merge and combination
*/
package engine

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT METHOD - Closed set of collection channels
// =============================================================================

type PaymentMethod string

const (
	// MethodPayAt is the cash-voucher channel, billed from inception or
	// first collection depending on date thresholds.
	MethodPayAt PaymentMethod = "PayAt"

	// MethodDirectDebit is the bank-debit channel, billed on a preferred
	// day-of-month.
	MethodDirectDebit PaymentMethod = "Direct Debit"

	// MethodUnknown is any unrecognized channel. No schedule can be
	// derived for it.
	MethodUnknown PaymentMethod = "Unknown"

	// MethodMixed is a group-level sentinel: member sub-policies disagree.
	MethodMixed PaymentMethod = "Mixed"
)

// ParsePaymentMethod maps upstream text onto the closed method set.
// Matching is case-insensitive and whitespace-tolerant.
func ParsePaymentMethod(s string) PaymentMethod {
	switch strings.ToLower(trimmed(s)) {
	case "payat":
		return MethodPayAt
	case "direct debit":
		return MethodDirectDebit
	default:
		return MethodUnknown
	}
}

// Policy status names considered active for reporting.
const (
	StatusActive       = "Active"
	StatusActivePolicy = "Active Policy"
)

// =============================================================================
// RECORDS
// =============================================================================

// Policy is one sub-policy, keyed by certificate. Contact and reference
// fields are carried through for the delinquency report only.
type Policy struct {
	Certificate            string
	GroupID                string
	StatusName             string
	PaymentMethod          PaymentMethod
	Premium                decimal.Decimal // expected amount per monthly period
	PreferredCollectionDay string          // raw upstream text; parsed where needed
	InceptionDate          Date
	FirstCollectionDate    Date

	CellPhone      string
	ClientName     string
	PayAtReference string
}

// Transaction is one recorded payment against a sub-policy. Premium is
// signed: positive for an accepted payment, negative for a reversal or
// default. An invalid Premium (non-numeric upstream) never enters sums.
type Transaction struct {
	PolicyRef     string
	Date          Date
	Premium       decimal.NullDecimal
	Type          string
	PaymentMethod PaymentMethod
}

// =============================================================================
// PERIODS AND STATUSES - Derived, never persisted
// =============================================================================

// Period is one expected monthly billing cycle, inclusive on both ends.
type Period struct {
	Start Date
	End   Date
}

// Contains reports whether the date falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodStatus pairs a period with the premium paid into it. TotalPaid
// is invalid only when the policy's first collection is still in the
// future - nothing could have been paid yet. A period with no matching
// transactions has a valid TotalPaid of zero.
type PeriodStatus struct {
	Period
	TotalPaid decimal.NullDecimal
}

// PolicyStatus is the scalar arrears summary for one sub-policy.
type PolicyStatus struct {
	UpToDate               bool
	AmountDue              decimal.Decimal // always >= 0
	NextPaymentDue         Date            // zero when no due date is derivable
	NextPaymentAlreadyMade bool
	PaymentMethod          PaymentMethod
}

// PolicyResult is the full evaluation output for one sub-policy.
type PolicyResult struct {
	Certificate string
	Periods     []PeriodStatus
	Status      PolicyStatus
}

// GroupStatus combines the statuses of every evaluated member of a group.
type GroupStatus struct {
	GroupID  string
	UpToDate bool

	// AmountDue is the sum over members. Invalid only when no member
	// contributed a value.
	AmountDue decimal.NullDecimal

	// NextPaymentDue is the members' common due date. When members
	// disagree MixedDueDates is set and the date is zero.
	NextPaymentDue Date
	MixedDueDates  bool

	NextPaymentAlreadyMade bool

	// PaymentMethod is the members' common method, or MethodMixed.
	PaymentMethod PaymentMethod
}

// GroupPeriod is one row of the merged group time series: a period
// boundary with each member's paid amount and their sum. Members whose
// schedules do not contain the period are absent from Paid.
type GroupPeriod struct {
	Period
	Paid      map[string]decimal.NullDecimal
	TotalPaid decimal.Decimal
}

// MemberFailure records a sub-policy that could not be evaluated during
// group aggregation. The group result is produced without it, so the
// group total may understate liability.
type MemberFailure struct {
	Certificate string
	Err         error
}

// GroupResult is the full evaluation output for one policy group.
type GroupResult struct {
	GroupID string
	Series  []GroupPeriod
	Status  GroupStatus
	Skipped []MemberFailure
}

// =============================================================================
// COERCION HELPERS - Shared by the stores and the ingest path
// =============================================================================

func trimmed(s string) string { return strings.TrimSpace(s) }

// ParseNullDecimal coerces upstream numeric text. Empty or non-numeric
// input yields an invalid NullDecimal, never zero.
func ParseNullDecimal(s string) decimal.NullDecimal {
	s = trimmed(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseCollectionDay parses a preferred collection day as an integer.
// The bool is false when the text is not an integer at all; range
// checking against (0,32) is the caller's concern.
func ParseCollectionDay(s string) (int, bool) {
	n, err := strconv.Atoi(trimmed(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
