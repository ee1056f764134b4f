package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// ClaimLister is the view of the claim registry the control surface needs.
type ClaimLister interface {
	List() []domain.TokenClaim
}

// ClaimsHandler exposes the live token claim table for operators debugging
// agent contention.
type ClaimsHandler struct {
	claims ClaimLister
}

// NewClaimsHandler creates a ClaimsHandler.
func NewClaimsHandler(claims ClaimLister) *ClaimsHandler {
	return &ClaimsHandler{claims: claims}
}

type claimView struct {
	Token     string `json:"token"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Reason    string `json:"reason"`
	ClaimedAt string `json:"claimed_at"`
	ExpiresAt string `json:"expires_at"`
}

// ListClaims responds with all live claims, oldest first.
// GET /claims
func (h *ClaimsHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	claims := h.claims.List()
	sort.Slice(claims, func(i, j int) bool {
		return claims[i].ClaimedAt.Before(claims[j].ClaimedAt)
	})

	views := make([]claimView, 0, len(claims))
	for _, c := range claims {
		views = append(views, claimView{
			Token:     c.Token,
			AgentID:   c.AgentID,
			AgentName: c.AgentName,
			Reason:    c.Reason,
			ClaimedAt: c.ClaimedAt.UTC().Format(time.RFC3339),
			ExpiresAt: c.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(views),
		"claims": views,
	})
}
