package evaluation

import (
	"encoding/json"
	"net/http"

	"github.com/lexeval/lexeval/internal/pkg/errors"
	"github.com/lexeval/lexeval/internal/report"
	"github.com/lexeval/lexeval/internal/runstore"
	"github.com/lexeval/lexeval/internal/schema"
)

// Handler provides HTTP handlers for evaluation.
type Handler struct {
	evaluator *Evaluator
	runs      *runstore.Service
}

// NewHandler creates a new evaluation handler. The run service is
// optional; without it, reports are returned but not persisted.
func NewHandler(e *Evaluator, runs *runstore.Service) *Handler {
	return &Handler{evaluator: e, runs: runs}
}

// RegisterRoutes registers evaluation routes. POST /v1/runs is the
// evaluate-and-persist form: the report is always stored.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/evaluation/evaluate", h.handleEvaluate)
	mux.HandleFunc("POST /v1/runs", h.handleCreateRun)
}

// EvaluateRequest carries both input sets inline.
type EvaluateRequest struct {
	Gold        *schema.GoldSet       `json:"gold"`
	Predictions *schema.PredictionSet `json:"predictions"`
	Label       string                `json:"label,omitempty"`

	// Persist controls whether the resulting run is stored. Defaults to
	// true when a run store is configured.
	Persist *bool `json:"persist,omitempty"`
}

// EvaluateResponse returns the report and, when persisted, the run id.
type EvaluateResponse struct {
	Report    *report.Report `json:"report"`
	Persisted bool           `json:"persisted"`
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		errors.WriteError(w, errors.ServiceUnavailableError("run store"))
		return
	}
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body: "+err.Error()))
		return
	}
	persist := true
	req.Persist = &persist
	h.evaluate(w, r, req)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body: "+err.Error()))
		return
	}
	h.evaluate(w, r, req)
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request, req EvaluateRequest) {
	if req.Gold == nil || len(req.Gold.Scenarios) == 0 {
		errors.WriteError(w, errors.ValidationError("gold set is required"))
		return
	}

	rep, err := h.evaluator.Evaluate(r.Context(), req.Gold, req.Predictions)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	persisted := false
	if h.runs != nil && (req.Persist == nil || *req.Persist) {
		run := runstore.NewRun(rep, req.Label)
		if err := h.runs.SaveRun(r.Context(), run); err != nil {
			errors.WriteError(w, err)
			return
		}
		persisted = true
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EvaluateResponse{Report: rep, Persisted: persisted})
}
