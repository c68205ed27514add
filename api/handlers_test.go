/*
handlers_test.go - HTTP-level tests for the reconciliation API

Tests exercise the full stack: router, handlers, SQLite store, and the
evaluation pipeline, using in-memory databases and fixed asOf dates.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ToniGrindrod/MicroInsure-no-data/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(NewRouter(NewHandler(store)))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedPolicy(t *testing.T, store *sqlite.Store, rec sqlite.PolicyRecord) {
	t.Helper()
	if err := store.PutPolicies(context.Background(), []sqlite.PolicyRecord{rec}); err != nil {
		t.Fatalf("Failed to seed policy: %v", err)
	}
}

func payAtRecord(cert, group string) sqlite.PolicyRecord {
	return sqlite.PolicyRecord{
		Certificate:   cert,
		GroupID:       group,
		StatusName:    "Active",
		PaymentMethod: "PayAt",
		Premium:       "100",
		InceptionDate: "2024-01-01",
		CellPhone:     "0821234567",
		ClientName:    "T Mokoena",
	}
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp
}

// =============================================================================
// POLICY STATUS
// =============================================================================

func TestGetPolicyStatus(t *testing.T) {
	// GIVEN: An unpaid policy incepted Jan 2024
	// WHEN: Requesting status as of mid-March 2024
	// THEN: Three periods, two full months in arrears

	srv, store := newTestServer(t)
	seedPolicy(t, store, payAtRecord("SUB-1", "POL-1"))

	var dto PolicyEvaluationDTO
	resp := getJSON(t, srv.URL+"/api/policies/SUB-1/status?asOf=2024-03-10", &dto)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if dto.Certificate != "SUB-1" || dto.AsOf != "2024-03-10" {
		t.Errorf("Unexpected identity fields: %+v", dto)
	}
	if len(dto.Periods) != 3 {
		t.Fatalf("Expected 3 periods, got %d", len(dto.Periods))
	}
	if dto.Periods[0].Start != "2024-01-01" || dto.Periods[0].End != "2024-01-31" {
		t.Errorf("Unexpected first period: %+v", dto.Periods[0])
	}
	if dto.Status.UpToDate {
		t.Error("Unpaid policy must not be up to date")
	}
	if dto.Status.AmountDue != "200" {
		t.Errorf("Expected 200 due, got %s", dto.Status.AmountDue)
	}
	if dto.Status.NextPaymentDue == nil || *dto.Status.NextPaymentDue != "2024-04-01" {
		t.Errorf("Expected next due 2024-04-01, got %v", dto.Status.NextPaymentDue)
	}
}

func TestGetPolicyStatus_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := getJSON(t, srv.URL+"/api/policies/NOPE/status?asOf=2024-03-10", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGetPolicyStatus_UnschedulablePolicy(t *testing.T) {
	// A policy whose payment method is outside the supported set cannot
	// be scheduled; the API reports it as unprocessable, not a crash.

	srv, store := newTestServer(t)
	rec := payAtRecord("SUB-1", "POL-1")
	rec.PaymentMethod = "Cash"
	seedPolicy(t, store, rec)

	resp := getJSON(t, srv.URL+"/api/policies/SUB-1/status?asOf=2024-03-10", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", resp.StatusCode)
	}
}

func TestGetPolicyStatus_BadAsOf(t *testing.T) {
	srv, store := newTestServer(t)
	seedPolicy(t, store, payAtRecord("SUB-1", "POL-1"))

	resp := getJSON(t, srv.URL+"/api/policies/SUB-1/status?asOf=soon", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

// =============================================================================
// GROUP STATUS
// =============================================================================

func TestGetGroupStatus_MergesAndFlagsSkipped(t *testing.T) {
	// GIVEN: A group with one healthy member and one with junk dates
	// THEN: The response carries the healthy member's series plus the
	//       skipped member

	srv, store := newTestServer(t)
	seedPolicy(t, store, payAtRecord("SUB-1", "POL-1"))

	broken := payAtRecord("SUB-2", "POL-1")
	broken.InceptionDate = ""
	broken.FirstCollectionDate = ""
	seedPolicy(t, store, broken)

	var dto GroupEvaluationDTO
	resp := getJSON(t, srv.URL+"/api/groups/POL-1/status?asOf=2024-03-10", &dto)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if dto.GroupID != "POL-1" {
		t.Errorf("Unexpected group id %q", dto.GroupID)
	}
	if len(dto.Series) != 3 {
		t.Errorf("Expected 3 merged periods, got %d", len(dto.Series))
	}
	if len(dto.Skipped) != 1 || dto.Skipped[0].Certificate != "SUB-2" {
		t.Errorf("Expected SUB-2 skipped, got %+v", dto.Skipped)
	}
	if dto.Status.AmountDue == nil || *dto.Status.AmountDue != "200" {
		t.Errorf("Expected 200 due, got %v", dto.Status.AmountDue)
	}
}

func TestGetGroupStatus_UnknownGroup(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := getJSON(t, srv.URL+"/api/groups/NOPE/status?asOf=2024-03-10", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGetGroupStatus_NoEvaluableMembers(t *testing.T) {
	srv, store := newTestServer(t)

	broken := payAtRecord("SUB-1", "POL-1")
	broken.InceptionDate = ""
	seedPolicy(t, store, broken)

	resp := getJSON(t, srv.URL+"/api/groups/POL-1/status?asOf=2024-03-10", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", resp.StatusCode)
	}
}

// =============================================================================
// INGESTION
// =============================================================================

func TestPutPoliciesAndAddCollections_EndToEnd(t *testing.T) {
	// GIVEN: Records ingested through the API
	// WHEN: Evaluating the policy afterwards
	// THEN: The payments settle the first period

	srv, _ := newTestServer(t)

	policies := `[{
		"certificate": "SUB-1", "group_id": "POL-1", "status_name": "Active",
		"payment_method": "PayAt", "premium": "100", "inception_date": "2024-01-01"
	}]`
	resp, err := http.Post(srv.URL+"/api/policies", "application/json", strings.NewReader(policies))
	if err != nil {
		t.Fatalf("POST policies: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 upserting policies, got %d", resp.StatusCode)
	}

	collections := `[
		{"policy_ref": "SUB-1", "transaction_date": "2024-01-10", "premium": "100"},
		{"policy_ref": "SUB-1", "transaction_date": "2024-02-10", "premium": "100"}
	]`
	resp, err = http.Post(srv.URL+"/api/collections", "application/json", strings.NewReader(collections))
	if err != nil {
		t.Fatalf("POST collections: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 adding collections, got %d", resp.StatusCode)
	}

	var dto PolicyEvaluationDTO
	getJSON(t, srv.URL+"/api/policies/SUB-1/status?asOf=2024-03-10", &dto)

	if !dto.Status.UpToDate {
		t.Errorf("Expected up to date after full payments, got due %s", dto.Status.AmountDue)
	}
}

func TestPutPolicies_RejectsMissingCertificate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/policies", "application/json",
		strings.NewReader(`[{"group_id": "POL-1"}]`))
	if err != nil {
		t.Fatalf("POST policies: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

// =============================================================================
// REPORT
// =============================================================================

func TestGetDelinquentReport_CSV(t *testing.T) {
	srv, store := newTestServer(t)
	seedPolicy(t, store, payAtRecord("SUB-1", "POL-1"))

	resp := getJSON(t, srv.URL+"/api/reports/delinquent?asOf=2024-03-10&format=csv", nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "not_up_to_date_20240310.csv") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
}

func TestGetDelinquentReport_JSON(t *testing.T) {
	srv, store := newTestServer(t)
	seedPolicy(t, store, payAtRecord("SUB-1", "POL-1"))

	paid := payAtRecord("SUB-2", "POL-2")
	seedPolicy(t, store, paid)
	err := store.AddTransactions(context.Background(), []sqlite.TransactionRecord{
		{PolicyRef: "SUB-2", TransactionDate: "2024-01-05", Premium: "100"},
		{PolicyRef: "SUB-2", TransactionDate: "2024-02-05", Premium: "100"},
	})
	if err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}

	var body struct {
		AsOf string           `json:"as_of"`
		Rows []map[string]any `json:"rows"`
	}
	resp := getJSON(t, srv.URL+"/api/reports/delinquent?asOf=2024-03-10", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body.AsOf != "2024-03-10" {
		t.Errorf("Unexpected as_of %q", body.AsOf)
	}
	if len(body.Rows) != 1 {
		t.Fatalf("Expected only the delinquent group, got %d rows", len(body.Rows))
	}
	if body.Rows[0]["group_id"] != "POL-1" {
		t.Errorf("Unexpected row: %v", body.Rows[0])
	}
	if body.Rows[0]["cellphone"] != "27821234567" {
		t.Errorf("Cellphone not normalized: %v", body.Rows[0]["cellphone"])
	}
}
