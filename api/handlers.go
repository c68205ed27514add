/*
handlers.go - HTTP handlers for the collections reconciliation API

PURPOSE:
  Exposes policy/group arrears evaluation and the delinquency report
  over REST, and accepts raw upstream records to populate the store.

ENDPOINTS:
  GET  /api/policies/{certificate}/status  Period table + arrears status
  GET  /api/groups/{id}/status             Merged series + group status
  GET  /api/reports/delinquent             Delinquent groups (JSON or CSV)
  POST /api/policies                       Bulk upsert policy records
  POST /api/collections                    Bulk append transaction records

REFERENCE DATE:
  Every evaluation endpoint takes ?asOf=YYYY-MM-DD. It defaults to
  today (UTC) only here at the HTTP edge - the engine itself always
  receives the explicit date, keeping evaluations replayable.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: malformed request body or asOf parameter
  - 404: unknown certificate or group
  - 422: policy data that cannot be scheduled (bad dates, bad method)
  - 500: store failures
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
	"github.com/ToniGrindrod/MicroInsure-no-data/report"
	"github.com/ToniGrindrod/MicroInsure-no-data/store/sqlite"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// evaluator builds an evaluator for the request's asOf parameter.
func (h *Handler) evaluator(r *http.Request) (*engine.Evaluator, error) {
	asOf := engine.Today()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		asOf = engine.ParseDate(raw)
		if !asOf.Known() {
			return nil, fmt.Errorf("invalid asOf date %q", raw)
		}
	}
	return engine.NewEvaluator(h.Store, asOf), nil
}

// GetPolicyStatus handles GET /api/policies/{certificate}/status.
func (h *Handler) GetPolicyStatus(w http.ResponseWriter, r *http.Request) {
	ev, err := h.evaluator(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	certificate := chi.URLParam(r, "certificate")
	result, err := ev.EvaluatePolicy(r.Context(), certificate)
	if err != nil {
		writeEvaluationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyEvaluationDTO(result, ev.ReferenceDate))
}

// GetGroupStatus handles GET /api/groups/{id}/status.
func (h *Handler) GetGroupStatus(w http.ResponseWriter, r *http.Request) {
	ev, err := h.evaluator(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	groupID := chi.URLParam(r, "id")
	result, err := ev.EvaluateGroup(r.Context(), groupID)
	if err != nil {
		writeEvaluationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupEvaluationDTO(result, ev.ReferenceDate))
}

// GetDelinquentReport handles GET /api/reports/delinquent.
// ?format=csv downloads the date-stamped export file.
func (h *Handler) GetDelinquentReport(w http.ResponseWriter, r *http.Request) {
	ev, err := h.evaluator(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rows, err := report.Build(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", report.Filename(ev.ReferenceDate)))
		if err := report.WriteCSV(w, rows); err != nil {
			// Headers are already gone; nothing useful to send.
			return
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"as_of": ev.ReferenceDate.String(),
		"rows":  rows,
	})
}

// PutPolicies handles POST /api/policies.
func (h *Handler) PutPolicies(w http.ResponseWriter, r *http.Request) {
	var records []PolicyRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	batch := make([]sqlite.PolicyRecord, 0, len(records))
	for _, rec := range records {
		if rec.Certificate == "" {
			writeError(w, http.StatusBadRequest, errors.New("policy record missing certificate"))
			return
		}
		batch = append(batch, rec.toRecord())
	}

	if err := h.Store.PutPolicies(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"upserted": len(batch)})
}

// AddCollections handles POST /api/collections.
func (h *Handler) AddCollections(w http.ResponseWriter, r *http.Request) {
	var records []TransactionRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	batch := make([]sqlite.TransactionRecord, 0, len(records))
	for _, rec := range records {
		if rec.PolicyRef == "" {
			writeError(w, http.StatusBadRequest, errors.New("transaction record missing policy_ref"))
			return
		}
		batch = append(batch, rec.toRecord())
	}

	if err := h.Store.AddTransactions(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": len(batch)})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeEvaluationError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrUnsupportedPaymentMethod),
		errors.Is(err, engine.ErrScheduleUndefined),
		errors.Is(err, engine.ErrGroupEmpty):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
