package handler

import (
	"net/http"
	"strconv"

	"github.com/freeeve/civ-balance/api/internal/auth"
	"github.com/freeeve/civ-balance/api/internal/logger"
	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/internal/service"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// SimulationHandler serves the civilization catalog and drives simulations.
type SimulationHandler struct {
	svc *service.SimulationService
}

// NewSimulationHandler creates a SimulationHandler.
func NewSimulationHandler(svc *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

// ListCivilizations handles GET /api/v1/civilizations
func (h *SimulationHandler) ListCivilizations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Civilizations())
}

type spreadResponse struct {
	Applied bool `json:"applied"`
	model.CivilizationList
}

// SetSpread handles PUT /api/v1/civilizations/spread
// Ignored while a simulation is running; the response reports whether it applied.
func (h *SimulationHandler) SetSpread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Spread *float64 `json:"spread"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Spread == nil {
		writeError(w, http.StatusBadRequest, "spread is required")
		return
	}
	applied := h.svc.SetStrengthSpread(r.Context(), *req.Spread)
	if applied {
		logger.FromContext(r.Context()).Info().
			Str("operator", auth.OperatorFromContext(r.Context())).
			Float64("spread", *req.Spread).
			Msg("Spread changed")
	}
	writeJSON(w, http.StatusOK, spreadResponse{Applied: applied, CivilizationList: h.svc.Civilizations()})
}

type startResponse struct {
	RunID    string         `json:"run_id"`
	Started  bool           `json:"started"`
	Snapshot model.Snapshot `json:"snapshot"`
}

// StartSimulation handles POST /api/v1/simulations
// An empty body runs with the profile defaults, as does any option with an
// unusable value; only malformed JSON is rejected. While a run is in progress
// the request is ignored and the current run is returned with 200.
func (h *SimulationHandler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if err := decodeJSON(w, r, &req); err != nil && !isEmptyBody(err) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	runID, started := h.svc.Start(req)
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
		logger.FromContext(r.Context()).Info().
			Str("operator", auth.OperatorFromContext(r.Context())).
			Str("runId", runID).
			Msg("Simulation requested")
	}
	writeJSON(w, status, startResponse{RunID: runID, Started: started, Snapshot: h.svc.Snapshot()})
}

// CurrentSimulation handles GET /api/v1/simulations/current
func (h *SimulationHandler) CurrentSimulation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// CancelSimulation handles POST /api/v1/simulations/current/cancel
func (h *SimulationHandler) CancelSimulation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

type insightsResponse struct {
	Message string `json:"message"`
	*balance.InsightReport
}

// Insights handles GET /api/v1/simulations/current/insights
// With ?run_id= it serves a past run's report from the cache or archive.
func (h *SimulationHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var (
		report *balance.InsightReport
		err    error
	)
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		report, err = h.svc.RunInsights(r.Context(), runID)
	} else {
		report, err = h.svc.Insights()
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insightsResponse{Message: report.Message(), InsightReport: report})
}

// ListRuns handles GET /api/v1/runs
func (h *SimulationHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := h.svc.ListRuns(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if runs == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *SimulationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
