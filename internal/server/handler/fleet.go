package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/fleet"
)

// FleetRunner is the slice of the fleet runner the control surface calls.
type FleetRunner interface {
	RunFleetCycle(ctx context.Context) ([]fleet.AgentCycleResult, error)
	RunSingleAgentCycle(ctx context.Context, agentID string) (fleet.AgentCycleResult, error)
}

// FleetHandler exposes manual cycle triggers for operators.
type FleetHandler struct {
	runner FleetRunner
	logger *slog.Logger
}

// NewFleetHandler creates a FleetHandler.
func NewFleetHandler(runner FleetRunner, logger *slog.Logger) *FleetHandler {
	return &FleetHandler{runner: runner, logger: logHandler(logger, "fleet")}
}

// TriggerFleetCycle runs one full fleet cycle synchronously and returns the
// per-agent results. A nil runner means the process has no settlement
// credentials; triggers are refused rather than half-executed.
// POST /fleet/cycle
func (h *FleetHandler) TriggerFleetCycle(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "trading is not configured in this mode")
		return
	}
	results, err := h.runner.RunFleetCycle(r.Context())
	if err != nil {
		h.logger.Error("manual fleet cycle failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// TriggerAgentCycle runs one cycle for a single agent.
// POST /agents/{id}/cycle
func (h *FleetHandler) TriggerAgentCycle(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "trading is not configured in this mode")
		return
	}
	agentID := pathParam(r, "id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent id is required")
		return
	}

	result, err := h.runner.RunSingleAgentCycle(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found: "+agentID)
			return
		}
		h.logger.Error("manual agent cycle failed",
			slog.String("agent_id", agentID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
