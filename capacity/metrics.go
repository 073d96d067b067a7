/*
metrics.go - Team-level capacity rollups and trend series

PURPOSE:
  Combines one CapacityBreakdown per active teammate with the ledger's
  current allocations to produce team totals, average utilization, a coarse
  capacity status, risk findings, and a trend series of independently
  recomputed historical periods.

DEFINITIONS:
  averageUtilization is the arithmetic mean of per-teammate utilization,
  NOT capacity-weighted. The dashboard depends on this exact definition.

  capacityStatus: OVER_ALLOCATED above 100, AT_CAPACITY at 80 and above,
  AVAILABLE otherwise.

STATE:
  None. Every call recomputes from source records, including each trend
  point. There is no incremental or streaming state to invalidate.

SEE ALSO:
  - calculator.go: Per-teammate breakdowns
  - risk.go: The findings attached as RiskFactors
*/
package capacity

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregator rolls ledger + calculator + risk output up per team.
// Stateless and safe for concurrent use.
type Aggregator struct {
	directory  DirectoryStore
	ledger     *Ledger
	calculator *Calculator
	assessor   *Assessor
}

func NewAggregator(directory DirectoryStore, ledger *Ledger, calculator *Calculator, assessor *Assessor) *Aggregator {
	return &Aggregator{
		directory:  directory,
		ledger:     ledger,
		calculator: calculator,
		assessor:   assessor,
	}
}

// Aggregate produces the team's metrics for the current period plus one
// trend point per requested historical period.
func (g *Aggregator) Aggregate(ctx context.Context, teamID TeamID, window Period, history []Period) (*TeamCapacityMetrics, error) {
	if _, err := g.directory.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}

	metrics := &TeamCapacityMetrics{TeamID: teamID, Period: window}

	rows, totals, err := g.snapshot(ctx, teamID, window)
	if err != nil {
		return nil, err
	}
	metrics.Teammates = rows
	metrics.TotalBaseCapacity = totals.base
	metrics.TotalAvailableCapacity = totals.available
	metrics.TotalAllocatedCapacity = totals.allocated
	metrics.AverageUtilization = totals.averageUtilization(len(rows))
	metrics.Status = StatusFor(metrics.AverageUtilization)

	for _, past := range history {
		point, err := g.trendPoint(ctx, teamID, past)
		if err != nil {
			return nil, fmt.Errorf("trend point %s: %w", past, err)
		}
		metrics.Trends = append(metrics.Trends, point)
	}

	risks, err := g.assessor.AssessRisks(ctx, teamID, window)
	if err != nil {
		return nil, err
	}
	metrics.RiskFactors = risks

	return metrics, nil
}

type teamTotals struct {
	base        decimal.Decimal
	available   decimal.Decimal
	allocated   decimal.Decimal
	utilization decimal.Decimal // running sum
}

func (t teamTotals) averageUtilization(teammates int) decimal.Decimal {
	if teammates == 0 {
		return decimal.Zero
	}
	return t.utilization.Div(DecInt(teammates))
}

// snapshot computes one period's per-teammate rows and totals. Trend points
// re-run this for their own date range - no cached state.
func (g *Aggregator) snapshot(ctx context.Context, teamID TeamID, window Period) ([]TeammateCapacity, teamTotals, error) {
	allocations, err := g.ledger.AllocationsForTeam(ctx, teamID)
	if err != nil {
		return nil, teamTotals{}, err
	}

	totals := teamTotals{
		base:        decimal.Zero,
		available:   decimal.Zero,
		allocated:   decimal.Zero,
		utilization: decimal.Zero,
	}

	var rows []TeammateCapacity
	for _, alloc := range allocations {
		teammate, err := g.directory.GetTeammate(ctx, alloc.TeammateID)
		if err != nil {
			return nil, teamTotals{}, err
		}
		if !teammate.Active {
			continue
		}

		breakdown, err := g.calculator.ComputeBreakdown(ctx, teammate.ID, window)
		if err != nil {
			return nil, teamTotals{}, err
		}

		allocated := breakdown.AllocatedHours(alloc.Percentage)
		utilization := breakdown.Utilization(alloc.Percentage)

		rows = append(rows, TeammateCapacity{
			Teammate:    *teammate,
			Breakdown:   *breakdown,
			Percentage:  alloc.Percentage,
			Allocated:   allocated,
			Utilization: utilization,
		})

		totals.base = totals.base.Add(breakdown.BaseHours)
		totals.available = totals.available.Add(breakdown.AvailableHours)
		totals.allocated = totals.allocated.Add(allocated)
		totals.utilization = totals.utilization.Add(utilization)
	}

	return rows, totals, nil
}

func (g *Aggregator) trendPoint(ctx context.Context, teamID TeamID, window Period) (TrendPoint, error) {
	rows, totals, err := g.snapshot(ctx, teamID, window)
	if err != nil {
		return TrendPoint{}, err
	}
	avg := totals.averageUtilization(len(rows))
	return TrendPoint{
		Period:             window,
		TotalAvailable:     totals.available,
		TotalAllocated:     totals.allocated,
		AverageUtilization: avg,
		Status:             StatusFor(avg),
	}, nil
}
