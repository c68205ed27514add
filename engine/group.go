/*
group.go - Group-level merge and status combination

PURPOSE:
  A policy group (master policy) is a set of sub-policies reported on
  jointly. Member schedules can have different anchors, so their period
  tables are aligned by date range - a full outer join on (start, end) -
  never by position. Scalar statuses combine field-by-field.

COMBINATION RULES:
  UpToDate, NextPaymentAlreadyMade  -> AND over members
  AmountDue                         -> sum; unknown members contribute
                                       nothing; unknown only when every
                                       member is unknown
  NextPaymentDue, PaymentMethod     -> common value, else "Mixed"
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MergeSeries aligns member period tables by (start, end) and sums the
// known paid amounts per aligned period. Rows are ordered by start date,
// then end date.
func MergeSeries(members []PolicyResult) []GroupPeriod {
	byPeriod := make(map[Period]*GroupPeriod)
	for _, m := range members {
		for _, ps := range m.Periods {
			row, ok := byPeriod[ps.Period]
			if !ok {
				row = &GroupPeriod{
					Period: ps.Period,
					Paid:   make(map[string]decimal.NullDecimal),
				}
				byPeriod[ps.Period] = row
			}
			row.Paid[m.Certificate] = ps.TotalPaid
		}
	}

	rows := make([]GroupPeriod, 0, len(byPeriod))
	for _, row := range byPeriod {
		total := decimal.Zero
		for _, paid := range row.Paid {
			if paid.Valid {
				total = total.Add(paid.Decimal)
			}
		}
		row.TotalPaid = total
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Start.Equal(rows[j].Start) {
			return rows[i].Start.Before(rows[j].Start)
		}
		return rows[i].End.Before(rows[j].End)
	})
	return rows
}

// CombineStatuses folds member statuses into one group status.
// The members slice must be non-empty.
func CombineStatuses(groupID string, members []PolicyResult) GroupStatus {
	gs := GroupStatus{
		GroupID:                groupID,
		UpToDate:               true,
		NextPaymentAlreadyMade: true,
	}

	total := decimal.Zero
	first := members[0].Status
	sameDue, sameMethod := true, true

	for _, m := range members {
		st := m.Status
		gs.UpToDate = gs.UpToDate && st.UpToDate
		gs.NextPaymentAlreadyMade = gs.NextPaymentAlreadyMade && st.NextPaymentAlreadyMade
		total = total.Add(st.AmountDue)

		if !sameDueDate(st.NextPaymentDue, first.NextPaymentDue) {
			sameDue = false
		}
		if st.PaymentMethod != first.PaymentMethod {
			sameMethod = false
		}
	}

	gs.AmountDue = decimal.NullDecimal{Decimal: total, Valid: true}

	if sameDue {
		gs.NextPaymentDue = first.NextPaymentDue
	} else {
		gs.MixedDueDates = true
	}

	if sameMethod {
		gs.PaymentMethod = first.PaymentMethod
	} else {
		gs.PaymentMethod = MethodMixed
	}

	return gs
}

// sameDueDate treats two unknown dates as agreeing.
func sameDueDate(a, b Date) bool {
	if !a.Known() && !b.Known() {
		return true
	}
	return a.Equal(b)
}
