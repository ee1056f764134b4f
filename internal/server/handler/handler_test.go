package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/fleet"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	fleetResults []fleet.AgentCycleResult
	fleetErr     error
	singleErr    error
}

func (f *fakeRunner) RunFleetCycle(context.Context) ([]fleet.AgentCycleResult, error) {
	return f.fleetResults, f.fleetErr
}

func (f *fakeRunner) RunSingleAgentCycle(_ context.Context, agentID string) (fleet.AgentCycleResult, error) {
	if f.singleErr != nil {
		return fleet.AgentCycleResult{}, f.singleErr
	}
	return fleet.AgentCycleResult{AgentID: agentID, Status: "no_action"}, nil
}

type fakeClaims struct {
	claims []domain.TokenClaim
}

func (f *fakeClaims) List() []domain.TokenClaim { return f.claims }

func newMux(h *FleetHandler, c *ClaimsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	if h != nil {
		mux.HandleFunc("POST /fleet/cycle", h.TriggerFleetCycle)
		mux.HandleFunc("POST /agents/{id}/cycle", h.TriggerAgentCycle)
	}
	if c != nil {
		mux.HandleFunc("GET /claims", c.ListClaims)
	}
	return mux
}

func TestTriggerFleetCycle(t *testing.T) {
	h := NewFleetHandler(&fakeRunner{fleetResults: []fleet.AgentCycleResult{
		{AgentID: "a1", AgentName: "Blitz", Status: "entered"},
		{AgentID: "a2", AgentName: "Cassandra", Status: "error", Error: "rpc down"},
	}}, testLogger())

	rec := httptest.NewRecorder()
	newMux(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fleet/cycle", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []fleet.AgentCycleResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, "entered", body.Results[0].Status)
	assert.Equal(t, "rpc down", body.Results[1].Error)
}

func TestTriggerAgentCycleUnknownAgent(t *testing.T) {
	h := NewFleetHandler(&fakeRunner{singleErr: domain.ErrNotFound}, testLogger())

	rec := httptest.NewRecorder()
	newMux(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents/ghost/cycle", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerAgentCycle(t *testing.T) {
	h := NewFleetHandler(&fakeRunner{}, testLogger())

	rec := httptest.NewRecorder()
	newMux(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents/a1/cycle", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res fleet.AgentCycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "a1", res.AgentID)
}

func TestTriggerFleetCycleFailure(t *testing.T) {
	h := NewFleetHandler(&fakeRunner{fleetErr: errors.New("store unavailable")}, testLogger())

	rec := httptest.NewRecorder()
	newMux(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fleet/cycle", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListClaimsSortedByAge(t *testing.T) {
	now := time.Now()
	c := NewClaimsHandler(&fakeClaims{claims: []domain.TokenClaim{
		{Token: "0xbbb", AgentName: "Ahab", ClaimedAt: now},
		{Token: "0xaaa", AgentName: "Blitz", ClaimedAt: now.Add(-time.Minute)},
	}})

	rec := httptest.NewRecorder()
	newMux(nil, c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count  int         `json:"count"`
		Claims []claimView `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "0xaaa", body.Claims[0].Token)
	assert.Equal(t, "Blitz", body.Claims[0].AgentName)
}
