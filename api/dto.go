/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the engine's domain
  model from the external contract. Unknown values serialize as null
  (never empty strings or zero), and group fields that can diverge
  across members use the "Mixed" sentinel the collections team expects.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
	"github.com/ToniGrindrod/MicroInsure-no-data/store/sqlite"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PeriodStatusDTO is one billing period with its paid total.
// TotalPaid is null when the first collection is still in the future.
type PeriodStatusDTO struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	TotalPaid *string `json:"total_paid"`
}

// PolicyStatusDTO is the scalar arrears summary for a sub-policy.
type PolicyStatusDTO struct {
	UpToDate               bool    `json:"up_to_date"`
	AmountDue              string  `json:"amount_due"`
	NextPaymentDue         *string `json:"next_payment_due"`
	NextPaymentAlreadyMade bool    `json:"next_payment_already_made"`
	PaymentMethod          string  `json:"payment_method"`
}

// PolicyEvaluationDTO is the full response for a sub-policy evaluation.
type PolicyEvaluationDTO struct {
	Certificate string            `json:"certificate"`
	AsOf        string            `json:"as_of"`
	Periods     []PeriodStatusDTO `json:"periods"`
	Status      PolicyStatusDTO   `json:"status"`
}

// GroupPeriodDTO is one row of the merged group time series.
type GroupPeriodDTO struct {
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Paid      map[string]*string `json:"paid"`
	TotalPaid string             `json:"total_paid"`
}

// GroupStatusDTO is the combined status for a policy group.
// NextPaymentDue and PaymentMethod carry "Mixed" when members disagree.
type GroupStatusDTO struct {
	UpToDate               bool    `json:"up_to_date"`
	AmountDue              *string `json:"amount_due"`
	NextPaymentDue         *string `json:"next_payment_due"`
	NextPaymentAlreadyMade bool    `json:"next_payment_already_made"`
	PaymentMethod          string  `json:"payment_method"`
}

// SkippedMemberDTO reports a sub-policy excluded from a group result.
type SkippedMemberDTO struct {
	Certificate string `json:"certificate"`
	Error       string `json:"error"`
}

// GroupEvaluationDTO is the full response for a group evaluation.
type GroupEvaluationDTO struct {
	GroupID string             `json:"group_id"`
	AsOf    string             `json:"as_of"`
	Series  []GroupPeriodDTO   `json:"series"`
	Status  GroupStatusDTO     `json:"status"`
	Skipped []SkippedMemberDTO `json:"skipped,omitempty"`
}

// =============================================================================
// REQUEST TYPES - Raw upstream records; coercion happens in the store
// =============================================================================

// PolicyRecordRequest is a raw policy row for ingestion.
type PolicyRecordRequest struct {
	Certificate            string `json:"certificate"`
	FirstCollectionDate    string `json:"first_collection_date"`
	Premium                string `json:"premium"`
	PaymentMethod          string `json:"payment_method"`
	PreferredCollectionDay string `json:"preferred_collection_day"`
	InceptionDate          string `json:"inception_date"`
	GroupID                string `json:"group_id"`
	StatusName             string `json:"status_name"`
	CellPhone              string `json:"cellphone"`
	ClientName             string `json:"client_name"`
	PayAtReference         string `json:"payat_reference"`
}

// TransactionRecordRequest is a raw collection row for ingestion.
type TransactionRecordRequest struct {
	PolicyRef       string `json:"policy_ref"`
	TransactionDate string `json:"transaction_date"`
	Premium         string `json:"premium"`
	TransactionType string `json:"transaction_type"`
	PaymentMethod   string `json:"payment_method"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPolicyEvaluationDTO(res *engine.PolicyResult, asOf engine.Date) PolicyEvaluationDTO {
	dto := PolicyEvaluationDTO{
		Certificate: res.Certificate,
		AsOf:        asOf.String(),
		Periods:     make([]PeriodStatusDTO, 0, len(res.Periods)),
		Status: PolicyStatusDTO{
			UpToDate:               res.Status.UpToDate,
			AmountDue:              res.Status.AmountDue.String(),
			NextPaymentDue:         dateOrNil(res.Status.NextPaymentDue),
			NextPaymentAlreadyMade: res.Status.NextPaymentAlreadyMade,
			PaymentMethod:          string(res.Status.PaymentMethod),
		},
	}
	for _, ps := range res.Periods {
		var paid *string
		if ps.TotalPaid.Valid {
			v := ps.TotalPaid.Decimal.String()
			paid = &v
		}
		dto.Periods = append(dto.Periods, PeriodStatusDTO{
			Start:     ps.Start.String(),
			End:       ps.End.String(),
			TotalPaid: paid,
		})
	}
	return dto
}

func toGroupEvaluationDTO(res *engine.GroupResult, asOf engine.Date) GroupEvaluationDTO {
	status := GroupStatusDTO{
		UpToDate:               res.Status.UpToDate,
		NextPaymentAlreadyMade: res.Status.NextPaymentAlreadyMade,
		PaymentMethod:          string(res.Status.PaymentMethod),
	}
	if res.Status.AmountDue.Valid {
		v := res.Status.AmountDue.Decimal.String()
		status.AmountDue = &v
	}
	if res.Status.MixedDueDates {
		mixed := string(engine.MethodMixed)
		status.NextPaymentDue = &mixed
	} else {
		status.NextPaymentDue = dateOrNil(res.Status.NextPaymentDue)
	}

	dto := GroupEvaluationDTO{
		GroupID: res.GroupID,
		AsOf:    asOf.String(),
		Series:  make([]GroupPeriodDTO, 0, len(res.Series)),
		Status:  status,
	}
	for _, row := range res.Series {
		paid := make(map[string]*string, len(row.Paid))
		for cert, amount := range row.Paid {
			if amount.Valid {
				v := amount.Decimal.String()
				paid[cert] = &v
			} else {
				paid[cert] = nil
			}
		}
		dto.Series = append(dto.Series, GroupPeriodDTO{
			Start:     row.Start.String(),
			End:       row.End.String(),
			Paid:      paid,
			TotalPaid: row.TotalPaid.String(),
		})
	}
	for _, skip := range res.Skipped {
		dto.Skipped = append(dto.Skipped, SkippedMemberDTO{
			Certificate: skip.Certificate,
			Error:       skip.Err.Error(),
		})
	}
	return dto
}

func (r PolicyRecordRequest) toRecord() sqlite.PolicyRecord {
	return sqlite.PolicyRecord{
		Certificate:            r.Certificate,
		FirstCollectionDate:    r.FirstCollectionDate,
		Premium:                r.Premium,
		PaymentMethod:          r.PaymentMethod,
		PreferredCollectionDay: r.PreferredCollectionDay,
		InceptionDate:          r.InceptionDate,
		GroupID:                r.GroupID,
		StatusName:             r.StatusName,
		CellPhone:              r.CellPhone,
		ClientName:             r.ClientName,
		PayAtReference:         r.PayAtReference,
	}
}

func (r TransactionRecordRequest) toRecord() sqlite.TransactionRecord {
	return sqlite.TransactionRecord{
		TransactionDate: r.TransactionDate,
		Premium:         r.Premium,
		TransactionType: r.TransactionType,
		PaymentMethod:   r.PaymentMethod,
		PolicyRef:       r.PolicyRef,
	}
}

func dateOrNil(d engine.Date) *string {
	if !d.Known() {
		return nil
	}
	s := d.String()
	return &s
}
