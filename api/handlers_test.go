/*
handlers_test.go - HTTP-level tests for the API surface

Tests for:
- Allocation assign/update/remove round trips
- Error status mapping (400/404/409/422) and the remaining_percentage
  payload on capacity-exceeded responses
- Bulk assignment partial success (207)
- Breakdown and metrics endpoints
*/
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/capacity/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := capacity.NewEngine(mem)
	handler := NewHandler(engine, zap.NewNop())
	srv := httptest.NewServer(NewRouter(handler, RouterConfig{
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv, mem
}

func seedDirectory(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()
	for _, tm := range []struct {
		id   string
		role capacity.Role
	}{
		{"alice", capacity.RoleEngineer},
		{"bob", capacity.RoleDesigner},
	} {
		require.NoError(t, mem.SaveTeammate(ctx, capacity.Teammate{
			ID:                capacity.TeammateID(tm.id),
			Name:              "Teammate " + tm.id,
			Role:              tm.role,
			BaseCapacityHours: capacity.DecInt(40),
			Active:            true,
			CreatedAt:         time.Now().UTC(),
		}))
	}
	for _, team := range []string{"platform", "growth"} {
		require.NoError(t, mem.SaveTeam(ctx, capacity.Team{
			ID:        capacity.TeamID(team),
			Name:      "Team " + team,
			CreatedAt: time.Now().UTC(),
		}))
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// ALLOCATION ENDPOINT TESTS
// =============================================================================

func TestAPI_Assign_Success(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[AllocationResponse](t, resp)
	assert.Equal(t, 40.0, body.RemainingPercentage)
}

func TestAPI_Assign_CapacityExceeded_422WithRemaining(t *testing.T) {
	// The 422 response carries the teammate's actual remaining percentage
	// so the client can offer a corrected value inline.

	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "growth", Percentage: 50,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "CAPACITY_EXCEEDED", body.Code)
	require.NotNil(t, body.RemainingPercentage)
	assert.Equal(t, 40.0, *body.RemainingPercentage)
}

func TestAPI_Assign_InvalidPercentage_400(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 150,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "INVALID_PERCENTAGE", body.Code)
}

func TestAPI_Assign_Duplicate_409(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 20,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Assign_UnknownTeammate_404(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "ghost", TeamID: "platform", Percentage: 30,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UpdateAllocation_Success(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 80,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[AllocationResponse](t, resp)
	assert.Equal(t, 20.0, body.RemainingPercentage)
}

func TestAPI_RemoveAllocation_Idempotent(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	// Removing an allocation that never existed still returns 204
	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/allocations", RemoveAllocationRequest{
		TeammateID: "alice", TeamID: "platform",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// BULK ASSIGNMENT
// =============================================================================

func TestAPI_BulkAssign_PartialSuccess_207(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	// bob is already near capacity
	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "bob", TeamID: "growth", Percentage: 90,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/allocations/bulk", BulkAssignRequest{
		TeamID: "platform",
		Items: []BulkAssignItem{
			{TeammateID: "alice", Percentage: 50},
			{TeammateID: "bob", Percentage: 50},
		},
	})
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)

	results := decodeBody[[]BulkAssignResultDTO](t, resp)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.Equal(t, 50.0, results[0].RemainingPercentage)
	assert.False(t, results[1].OK)
	assert.Equal(t, "CAPACITY_EXCEEDED", results[1].ErrorCode)
}

// =============================================================================
// BREAKDOWN & METRICS ENDPOINTS
// =============================================================================

func TestAPI_Breakdown_WithLeave(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/leave", CreateLeaveRequest{
		TeammateID: "alice", Type: "vacation",
		StartDate: "2026-01-07", EndDate: "2026-01-09", HoursPerDay: 8,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/teammates/alice/breakdown?start=2026-01-05&end=2026-01-16")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[BreakdownDTO](t, resp)
	assert.Equal(t, 24.0, body.LeaveHours)
	assert.Equal(t, 16.0, body.AvailableHours)
}

func TestAPI_Breakdown_InvalidPeriod_400(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp, err := http.Get(srv.URL + "/api/teammates/alice/breakdown?start=2026-01-16&end=2026-01-05")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_TeamMetrics(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	for _, req := range []AllocationRequest{
		{TeammateID: "alice", TeamID: "platform", Percentage: 50},
		{TeammateID: "bob", TeamID: "platform", Percentage: 100},
	} {
		resp := postJSON(t, srv.URL+"/api/allocations", req)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/teams/platform/metrics?start=2026-01-05&end=2026-01-16")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[TeamMetricsDTO](t, resp)
	assert.Equal(t, 80.0, body.TotalBaseCapacity)
	assert.Equal(t, 60.0, body.TotalAllocatedCapacity)
	assert.Equal(t, 75.0, body.AverageUtilization)
	assert.Equal(t, "AVAILABLE", body.Status)
	assert.Len(t, body.Teammates, 2)
}

func TestAPI_TeamMetrics_WithTrends(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 50,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/teams/platform/metrics?start=2026-01-05&end=2026-01-16&trends=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[TeamMetricsDTO](t, resp)
	require.Len(t, body.Trends, 2)
	// Consecutive 12-day windows immediately before Jan 5
	assert.Equal(t, "2025-12-24", body.Trends[0].PeriodStart)
	assert.Equal(t, "2026-01-04", body.Trends[0].PeriodEnd)
	assert.Equal(t, "2025-12-12", body.Trends[1].PeriodStart)
	assert.Equal(t, "2025-12-23", body.Trends[1].PeriodEnd)
}

func TestAPI_TeamMetrics_UnknownTeam_404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/teams/ghost/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// DIRECTORY & LIFECYCLE ENDPOINTS
// =============================================================================

func TestAPI_CreateAndGetTeammate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/teammates", CreateTeammateRequest{
		ID: "carol", Name: "Carol", Role: "QA", BaseCapacityHours: 32,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/teammates/carol")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[TeammateDTO](t, resp)
	assert.Equal(t, "Carol", body.Name)
	assert.Equal(t, 32.0, body.BaseCapacityHours)
	assert.True(t, body.Active)
}

func TestAPI_DeactivateTeammate(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/teammates/alice", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deactivated teammates reject new allocations
	resp = postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 30,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Remaining(t *testing.T) {
	srv, mem := newTestServer(t)
	seedDirectory(t, mem)

	resp := postJSON(t, srv.URL+"/api/allocations", AllocationRequest{
		TeammateID: "alice", TeamID: "platform", Percentage: 72.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/teammates/alice/remaining")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[RemainingDTO](t, resp)
	assert.Equal(t, 27.5, body.RemainingPercentage)
}

func TestAPI_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
