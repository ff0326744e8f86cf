package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lexeval/lexeval/internal/pkg/errors"
	"github.com/lexeval/lexeval/internal/runstore"
)

// RunHandler serves stored evaluation runs.
type RunHandler struct {
	runs *runstore.Service
}

// NewRunHandler creates a new run handler.
func NewRunHandler(runs *runstore.Service) *RunHandler {
	return &RunHandler{runs: runs}
}

// RegisterRoutes registers run routes.
func (h *RunHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/runs", h.handleList)
	mux.HandleFunc("GET /v1/runs/{id}", h.handleGet)
	mux.HandleFunc("GET /v1/runs/{id}/report", h.handleReport)
	mux.HandleFunc("DELETE /v1/runs/{id}", h.handleDelete)
}

// RunSummary is the list view of a stored run. Full reports are only
// returned for single-run lookups.
type RunSummary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Scenarios int       `json:"scenarios"`
	Malformed int       `json:"malformed"`
}

func (h *RunHandler) handleList(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context())
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, RunSummary{
			ID:        run.ID,
			Label:     run.Label,
			CreatedAt: run.CreatedAt,
			Scenarios: run.Report.Inputs.Scenarios,
			Malformed: run.Report.Malformed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  summaries,
		"count": len(summaries),
	})
}

func (h *RunHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleReport renders a stored run's report as plain text.
func (h *RunHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, run.Report.Format())
}

func (h *RunHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.runs.DeleteRun(r.Context(), r.PathValue("id")); err != nil {
		errors.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written, nothing to send to the client.
		_ = err
	}
}
