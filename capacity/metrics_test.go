package capacity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-engine/capacity"
)

// =============================================================================
// ROLLUP TESTS
// =============================================================================

func TestAggregator_TeamTotals(t *testing.T) {
	// GIVEN: alice (40h base, 50%) and bob (40h base, 100%) on a team,
	//        no deductions
	// WHEN: Aggregating
	// THEN: totals are base 80, available 80, allocated 20+40=60;
	//       average utilization (50+100)/2 = 75 -> AVAILABLE

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedTeammate(t, mem, "alice", capacity.RoleEngineer, 40)
	seedTeammate(t, mem, "bob", capacity.RoleEngineer, 40)
	seedTeam(t, mem, "platform")
	_, err := engine.Ledger.Assign(ctx, "alice", "platform", capacity.DecInt(50))
	require.NoError(t, err)
	_, err = engine.Ledger.Assign(ctx, "bob", "platform", capacity.DecInt(100))
	require.NoError(t, err)

	m, err := engine.Aggregator.Aggregate(ctx, "platform", sprint(), nil)
	require.NoError(t, err)

	assert.True(t, m.TotalBaseCapacity.Equal(capacity.DecInt(80)))
	assert.True(t, m.TotalAvailableCapacity.Equal(capacity.DecInt(80)))
	assert.True(t, m.TotalAllocatedCapacity.Equal(capacity.DecInt(60)))
	assert.True(t, m.AverageUtilization.Equal(capacity.DecInt(75)),
		"average utilization: %s", m.AverageUtilization)
	assert.Equal(t, capacity.StatusAvailable, m.Status)
	assert.Len(t, m.Teammates, 2)
}

func TestAggregator_AverageUtilization_Unweighted(t *testing.T) {
	// GIVEN: A 4h-base teammate at 100% and an 80h-base teammate at 10%
	// WHEN: Aggregating
	// THEN: Average is (100+10)/2 = 55 - the unweighted mean the dashboard
	//       depends on, even though it reads high for the actual hours

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedTeammate(t, mem, "tiny", capacity.RoleEngineer, 4)
	seedTeammate(t, mem, "big", capacity.RoleEngineer, 80)
	seedTeam(t, mem, "platform")
	_, err := engine.Ledger.Assign(ctx, "tiny", "platform", capacity.DecInt(100))
	require.NoError(t, err)
	_, err = engine.Ledger.Assign(ctx, "big", "platform", capacity.DecInt(10))
	require.NoError(t, err)

	m, err := engine.Aggregator.Aggregate(ctx, "platform", sprint(), nil)
	require.NoError(t, err)
	assert.True(t, m.AverageUtilization.Equal(capacity.DecInt(55)),
		"unweighted mean, got %s", m.AverageUtilization)
}

func TestAggregator_StatusThresholds(t *testing.T) {
	cases := []struct {
		name   string
		pct    int
		status capacity.CapacityStatus
	}{
		{"available below 80", 79, capacity.StatusAvailable},
		{"at capacity at 80", 80, capacity.StatusAtCapacity},
		{"at capacity at 100", 100, capacity.StatusAtCapacity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, mem := newTestEngine(t)
			ctx := context.Background()
			seedTeammate(t, mem, "alice", capacity.RoleEngineer, 40)
			seedTeam(t, mem, "platform")
			_, err := engine.Ledger.Assign(ctx, "alice", "platform", capacity.DecInt(tc.pct))
			require.NoError(t, err)

			m, err := engine.Aggregator.Aggregate(ctx, "platform", sprint(), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.status, m.Status)
		})
	}
}

func TestAggregator_EmptyTeam_ZeroMetrics(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedTeam(t, mem, "platform")

	m, err := engine.Aggregator.Aggregate(context.Background(), "platform", sprint(), nil)
	require.NoError(t, err)
	assert.True(t, m.AverageUtilization.IsZero())
	assert.Equal(t, capacity.StatusAvailable, m.Status)
	assert.Empty(t, m.Teammates)
}

func TestAggregator_UnknownTeam_NotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Aggregator.Aggregate(context.Background(), "ghost", sprint(), nil)
	assert.ErrorIs(t, err, capacity.ErrTeamNotFound)
}

func TestAggregator_InactiveTeammate_Excluded(t *testing.T) {
	// GIVEN: bob is deactivated after being allocated
	// WHEN: Aggregating
	// THEN: Only alice appears in the rollup

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedTeammate(t, mem, "alice", capacity.RoleEngineer, 40)
	seedTeammate(t, mem, "bob", capacity.RoleEngineer, 40)
	seedTeam(t, mem, "platform")
	_, err := engine.Ledger.Assign(ctx, "alice", "platform", capacity.DecInt(50))
	require.NoError(t, err)
	_, err = engine.Ledger.Assign(ctx, "bob", "platform", capacity.DecInt(50))
	require.NoError(t, err)
	require.NoError(t, engine.DeactivateTeammate(ctx, "bob"))

	m, err := engine.Aggregator.Aggregate(ctx, "platform", sprint(), nil)
	require.NoError(t, err)
	require.Len(t, m.Teammates, 1)
	assert.Equal(t, capacity.TeammateID("alice"), m.Teammates[0].Teammate.ID)
}

// =============================================================================
// TREND SERIES TESTS
// =============================================================================

func TestAggregator_Trends_RecomputedPerPeriod(t *testing.T) {
	// GIVEN: alice with leave only in the historical period
	// WHEN: Aggregating with that period as a trend point
	// THEN: The trend point reflects the leave; the current window doesn't.
	//       Each point is an independent full recomputation.

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedTeammate(t, mem, "alice", capacity.RoleEngineer, 48)
	seedTeam(t, mem, "platform")
	_, err := engine.Ledger.Assign(ctx, "alice", "platform", capacity.DecInt(50))
	require.NoError(t, err)

	past := capacity.Period{
		Start: capacity.NewDate(2025, time.December, 22),
		End:   capacity.NewDate(2026, time.January, 2),
	}
	seedLeave(t, mem, "alice", capacity.LeaveVacation,
		capacity.NewDate(2025, time.December, 24), capacity.NewDate(2025, time.December, 26), 8)

	m, err := engine.Aggregator.Aggregate(ctx, "platform", sprint(), []capacity.Period{past})
	require.NoError(t, err)

	assert.True(t, m.TotalAvailableCapacity.Equal(capacity.DecInt(48)),
		"current window untouched by past leave")
	require.Len(t, m.Trends, 1)
	assert.True(t, m.Trends[0].TotalAvailable.Equal(capacity.DecInt(24)),
		"past window: 48 - 3x8 leave, got %s", m.Trends[0].TotalAvailable)
	assert.Equal(t, past, m.Trends[0].Period)
}

// =============================================================================
// RISK ATTACHMENT
// =============================================================================

func TestAggregator_AttachesRiskFindings(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedTeammate(t, mem, "alice", capacity.RoleDesigner, 40)
	seedTeam(t, mem, "platform")
	_, err := engine.Ledger.Assign(ctx, "alice", "platform", capacity.DecInt(80))
	require.NoError(t, err)

	today := capacity.Today()
	seedLeave(t, mem, "alice", capacity.LeaveVacation, today.AddDays(2), today.AddDays(8), 8)

	m, err := engine.Aggregator.Aggregate(ctx, "platform", riskWindow(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, m.RiskFactors, "rollup should carry the assessor's findings")
}
