package engine

import "github.com/shopspring/decimal"

// MatchTransactions assigns a policy's transactions to its billing
// periods and sums the premium paid per period. A transaction counts
// toward a period when its date falls within [Start, End] inclusive;
// transactions with an unknown date or a non-numeric premium are
// excluded from every sum. A period with no matching transactions has a
// known TotalPaid of zero.
//
// For a future anchor no payment could have happened yet, so every
// period's TotalPaid is unknown and no truncation applies.
//
// Otherwise, leading periods strictly before the first period with a
// positive TotalPaid are dropped: the schedule starts counting from the
// first real payment. When no period has a positive payment the full
// generated set is kept. This is a deliberate collections business
// rule - the first recorded positive payment marks the "true" start of
// billing - and it is preserved exactly, reversals and all.
func MatchTransactions(s Schedule, txns []Transaction) []PeriodStatus {
	statuses := make([]PeriodStatus, 0, len(s.Periods))

	if s.FutureAnchor {
		for _, p := range s.Periods {
			statuses = append(statuses, PeriodStatus{Period: p})
		}
		return statuses
	}

	for _, p := range s.Periods {
		total := decimal.Zero
		for _, tx := range txns {
			if !tx.Premium.Valid || !tx.Date.Known() {
				continue
			}
			if p.Contains(tx.Date) {
				total = total.Add(tx.Premium.Decimal)
			}
		}
		statuses = append(statuses, PeriodStatus{
			Period:    p,
			TotalPaid: decimal.NullDecimal{Decimal: total, Valid: true},
		})
	}

	return truncateBeforeFirstPayment(statuses)
}

func truncateBeforeFirstPayment(statuses []PeriodStatus) []PeriodStatus {
	for i, ps := range statuses {
		if ps.TotalPaid.Valid && ps.TotalPaid.Decimal.IsPositive() {
			return statuses[i:]
		}
	}
	return statuses
}
