package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// StatusHandler serves the fleet's runtime status for operators.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	agents    domain.AgentStore
	holdings  domain.HoldingStore
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, startedAt time.Time, agents domain.AgentStore, holdings domain.HoldingStore, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		agents:    agents,
		holdings:  holdings,
		logger:    logHandler(logger, "status"),
	}
}

type agentStatusView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Strategy      string `json:"strategy"`
	VaultIndex    int64  `json:"vault_index"`
	OpenPositions int    `json:"open_positions"`
}

// GetStatus responds with the mode, uptime, and per-agent position counts.
// GET /status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.List(r.Context())
	if err != nil {
		h.logger.Error("list agents failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "listing agents failed")
		return
	}

	views := make([]agentStatusView, 0, len(agents))
	for _, a := range agents {
		view := agentStatusView{
			ID:         a.ID,
			Name:       a.DisplayName,
			Strategy:   a.Kind.String(),
			VaultIndex: a.VaultIndex,
		}
		if open, err := h.holdings.ListOpen(r.Context(), a.ID); err == nil {
			view.OpenPositions = len(open)
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"agents":         views,
	})
}
