package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediatally/mediatally/internal/drift"
	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/service"
	"github.com/mediatally/mediatally/internal/store"
)

// DriftHandler runs drift checks and serves their history.
type DriftHandler struct {
	svc *service.SchemaService
}

// NewDriftHandler creates a new DriftHandler.
func NewDriftHandler(svc *service.SchemaService) *DriftHandler {
	return &DriftHandler{svc: svc}
}

// ListServices returns the configured service names.
// GET /api/v1/services
func (h *DriftHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.NewListResponse(h.svc.Services()))
}

// driftResponse is the body of CheckDrift.
type driftResponse struct {
	drift.Report
	RunID string `json:"run_id,omitempty"`
}

// CheckDrift validates a service against the declared schema. Drift is a
// successful response with has_drift set.
// GET /api/v1/services/{serviceName}/drift
func (h *DriftHandler) CheckDrift(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "serviceName")
	report, run, err := h.svc.Check(r.Context(), name)
	if err != nil {
		writeError(w, statusFor(err), "Drift check failed: "+err.Error(), map[string]any{
			"service": name,
		})
		return
	}
	resp := driftResponse{Report: report}
	if run != nil {
		resp.RunID = run.RunID
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListChecks returns recorded check runs, newest first.
// GET /api/v1/services/{serviceName}/checks?limit=20
func (h *DriftHandler) ListChecks(w http.ResponseWriter, r *http.Request) {
	history := h.svc.History()
	if history == nil {
		writeError(w, http.StatusNotFound, "Check history is not enabled")
		return
	}
	name := chi.URLParam(r, "serviceName")
	if _, err := h.svc.Service(name); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	limit := clampInt(queryInt(r, "limit", 20), 1, 500)
	runs, err := history.ListChecks(r.Context(), name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list checks: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.NewListResponse(runs))
}

// GetCheck returns one recorded run with its findings.
// GET /api/v1/checks/{runID}
func (h *DriftHandler) GetCheck(w http.ResponseWriter, r *http.Request) {
	history := h.svc.History()
	if history == nil {
		writeError(w, http.StatusNotFound, "Check history is not enabled")
		return
	}
	run, err := history.GetCheck(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Check run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get check: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}
