/*
Package report builds the delinquency report consumed by the collections
team: one row per active policy group that is not up to date on premium.

Row construction carries the contact fields of one member sub-policy
(groups share contact details upstream), normalizes the cellphone to the
"27" country code, and turns the PayAt reference into a payment
deep-link QR URL when it parses. Export is a delimited file named with
the reference date.
*/
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
)

const payAtQRBase = "https://payat.io/qr/"

// Row is one delinquent group in the report.
type Row struct {
	CellPhone              string          `json:"cellphone"`
	ClientName             string          `json:"client_name"`
	GroupID                string          `json:"group_id"`
	PreferredCollectionDay string          `json:"preferred_collection_day"`
	PayAtReference         *int64          `json:"payat_reference"`
	PayAtQR                *string         `json:"payat_qr"`
	PaymentMethod          string          `json:"payment_method"`
	AmountDue              decimal.Decimal `json:"amount_due"`
}

// Build evaluates every active group as of the evaluator's reference
// date and returns a row for each group whose combined status is not up
// to date. Groups that fail evaluation entirely are logged and skipped.
func Build(ctx context.Context, ev *engine.Evaluator) ([]Row, error) {
	groupIDs, err := ev.Store.ActiveGroupIDs(ctx)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, groupID := range groupIDs {
		result, err := ev.EvaluateGroup(ctx, groupID)
		if err != nil {
			log.Printf("report: skipping group %s: %v", groupID, err)
			continue
		}
		if result.Status.UpToDate {
			continue
		}

		members, err := ev.Store.PoliciesByGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			continue
		}
		rows = append(rows, NewRow(members[0], result.Status))
	}
	return rows, nil
}

// NewRow builds the report row for a delinquent group from one member's
// contact fields and the combined group status.
func NewRow(p engine.Policy, status engine.GroupStatus) Row {
	ref, qr := payAtLink(p.PayAtReference)

	amount := decimal.Zero
	if status.AmountDue.Valid {
		amount = status.AmountDue.Decimal
	}

	return Row{
		CellPhone:              NormalizeCellPhone(p.CellPhone),
		ClientName:             p.ClientName,
		GroupID:                status.GroupID,
		PreferredCollectionDay: p.PreferredCollectionDay,
		PayAtReference:         ref,
		PayAtQR:                qr,
		PaymentMethod:          string(status.PaymentMethod),
		AmountDue:              amount,
	}
}

// NormalizeCellPhone rewrites a locally-formatted number to the "27"
// country code by dropping the leading digit: "0821234567" becomes
// "27821234567".
func NormalizeCellPhone(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	return "27" + s[1:]
}

// payAtLink parses the PayAt reference (tolerating a float rendering
// like "12345.0") and builds the payment deep link. Empty or
// unparseable references yield nil for both.
func payAtLink(raw string) (*int64, *string) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, nil
	}
	ref := int64(f)
	qr := fmt.Sprintf("%s%d", payAtQRBase, ref)
	return &ref, &qr
}

// Filename is the date-stamped export name for a report run.
func Filename(asOf engine.Date) string {
	return "not_up_to_date_" + asOf.Time.Format("20060102") + ".csv"
}

// WriteCSV exports rows with the upstream column headings.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	header := []string{
		"CellPhone", "Client_Name", "TransactionNo", "PreferredCollectionDay",
		"PayAtReference", "PayAtQR", "Payment_Method", "Amount due",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		ref, qr := "", ""
		if r.PayAtReference != nil {
			ref = strconv.FormatInt(*r.PayAtReference, 10)
		}
		if r.PayAtQR != nil {
			qr = *r.PayAtQR
		}
		record := []string{
			r.CellPhone, r.ClientName, r.GroupID, r.PreferredCollectionDay,
			ref, qr, r.PaymentMethod, r.AmountDue.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
