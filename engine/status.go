/*
status.go - Scalar status evaluation for one sub-policy

PURPOSE:
  Reduces the matched period series to the arrears summary: up-to-date
  flag, amount due, next due date, and whether the next collection is
  already covered.

EXPECTATION BASELINE:
  Only FULL periods owe a premium. A period is full when it spans at
  least one standard calendar month (start + 1 month - 1 day <= end,
  with the clamped month-add). The boundary-clipped final period is
  partial and owes nothing yet.

  amountDue = max(0, fullPeriods * premium - totalPaidAcrossAllPeriods)

NEXT DUE DATE:
  PayAt        -> one strict month after the last retained period start
  Direct Debit -> the collection day within the last period's start
                  month, unless the last start already sits on the
                  collection day (or the day is invalid for the month),
                  in which case one strict month after it
  otherwise    -> unknown
*/
package engine

import "github.com/shopspring/decimal"

// EvaluateStatus reduces a policy's matched periods to its arrears
// summary. The period slice must be the retained (truncated) series
// produced by MatchTransactions for the same schedule.
func EvaluateStatus(p Policy, s Schedule, periods []PeriodStatus) PolicyStatus {
	status := PolicyStatus{
		AmountDue:     decimal.Zero,
		PaymentMethod: p.PaymentMethod,
	}

	if s.FutureAnchor {
		// Nothing is owed before the first collection date arrives.
		status.UpToDate = true
		if len(periods) > 0 {
			status.NextPaymentDue = periods[0].Start
		}
		return status
	}

	if len(periods) == 0 {
		status.UpToDate = true
		return status
	}

	fullPeriods := 0
	totalPaid := decimal.Zero
	for _, ps := range periods {
		if isFullPeriod(ps.Period) {
			fullPeriods++
		}
		if ps.TotalPaid.Valid {
			totalPaid = totalPaid.Add(ps.TotalPaid.Decimal)
		}
	}

	expected := p.Premium.Mul(decimal.NewFromInt(int64(fullPeriods)))
	due := expected.Sub(totalPaid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	status.AmountDue = due
	status.UpToDate = due.IsZero()

	last := periods[len(periods)-1]
	status.NextPaymentDue = nextPaymentDue(p.PaymentMethod, last.Start, s.CollectionDay)
	status.NextPaymentAlreadyMade = last.TotalPaid.Valid &&
		last.TotalPaid.Decimal.GreaterThanOrEqual(p.Premium)

	return status
}

// isFullPeriod reports whether the period spans a complete calendar
// month. Uses the clamped month-add, not the strict stepper: clipped
// final periods must fail this test even in months the strict rule
// would skip past.
func isFullPeriod(p Period) bool {
	return addMonthClamped(p.Start).AddDays(-1).BeforeOrEqual(p.End)
}

func nextPaymentDue(method PaymentMethod, lastStart Date, collectionDay int) Date {
	switch method {
	case MethodPayAt:
		return AdvanceOneMonth(lastStart)
	case MethodDirectDebit:
		if lastStart.Day() == collectionDay {
			return AdvanceOneMonth(lastStart)
		}
		if d, ok := lastStart.WithDay(collectionDay); ok {
			return d
		}
		return AdvanceOneMonth(lastStart)
	default:
		return Date{}
	}
}
