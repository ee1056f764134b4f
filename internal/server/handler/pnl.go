package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// PnLHandler serves per-agent equity snapshot history.
type PnLHandler struct {
	pnl    domain.PnLStore
	logger *slog.Logger
}

// NewPnLHandler creates a PnLHandler.
func NewPnLHandler(pnl domain.PnLStore, logger *slog.Logger) *PnLHandler {
	return &PnLHandler{pnl: pnl, logger: logHandler(logger, "pnl")}
}

// ListSnapshots responds with the agent's equity series, newest first.
// Supports limit, offset, since, until query parameters.
// GET /agents/{id}/pnl
func (h *PnLHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	agentID := pathParam(r, "id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent id is required")
		return
	}

	snaps, err := h.pnl.ListRange(r.Context(), agentID, parseListOpts(r))
	if err != nil {
		h.logger.Error("list pnl snapshots failed",
			slog.String("agent_id", agentID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "listing snapshots failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":  agentID,
		"count":     len(snaps),
		"snapshots": snaps,
	})
}
