/*
calculator.go - Derives available hours for a teammate and period

PURPOSE:
  The Capacity Calculator turns base capacity plus leave/holiday/adjustment
  records into a CapacityBreakdown. It is a pure function of its inputs: no
  caching, no side effects. It is re-invoked whenever ledger state changes,
  since leave/holiday data is the faster-changing input.

OVERLAP RULE:
  A leave/holiday/adjustment counts toward the period if its date range
  intersects [period.Start, period.End]. Partial overlaps are clipped to the
  window before converting to hours (hoursPerDay x overlapping days).

CLAMPING:
  AvailableHours never goes negative. Exhausted capacity is exhausted, not
  debt.

DATA QUALITY:
  A teammate with no base capacity produces a zero-available breakdown with
  a warning instead of an error. The caller surfaces it as a data-quality
  note, not a hard failure.

SEE ALSO:
  - types.go: CapacityBreakdown and its utilization convention
  - metrics.go: Rolls breakdowns up per team
*/
package capacity

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Calculator computes capacity breakdowns. Stateless and safe for
// concurrent use; it only reads.
type Calculator struct {
	directory   DirectoryStore
	allocations AllocationStore
	calendar    CalendarStore
}

func NewCalculator(directory DirectoryStore, allocations AllocationStore, calendar CalendarStore) *Calculator {
	return &Calculator{directory: directory, allocations: allocations, calendar: calendar}
}

// ComputeBreakdown derives a teammate's available hours for the period.
func (c *Calculator) ComputeBreakdown(ctx context.Context, teammateID TeammateID, window Period) (*CapacityBreakdown, error) {
	if !window.IsValid() {
		return nil, ErrInvalidPeriod
	}

	teammate, err := c.directory.GetTeammate(ctx, teammateID)
	if err != nil {
		return nil, err
	}

	breakdown := &CapacityBreakdown{
		TeammateID:      teammateID,
		Period:          window,
		BaseHours:       teammate.BaseCapacityHours,
		LeaveHours:      decimal.Zero,
		HolidayHours:    decimal.Zero,
		AdjustmentHours: decimal.Zero,
	}

	if teammate.BaseCapacityHours.IsZero() {
		// Undefined capacity defaults to zero; surfaced as a warning so the
		// caller can flag the record, not as an error.
		breakdown.Warnings = append(breakdown.Warnings,
			fmt.Sprintf("teammate %s has no base capacity defined", teammateID))
	}

	leaveHours, err := c.leaveHours(ctx, teammateID, window)
	if err != nil {
		return nil, fmt.Errorf("compute leave hours: %w", err)
	}
	breakdown.LeaveHours = leaveHours

	holidayHours, err := c.holidayHours(ctx, teammate, window)
	if err != nil {
		return nil, fmt.Errorf("compute holiday hours: %w", err)
	}
	breakdown.HolidayHours = holidayHours

	adjustmentHours, err := c.adjustmentHours(ctx, teammateID, window)
	if err != nil {
		return nil, fmt.Errorf("compute adjustment hours: %w", err)
	}
	breakdown.AdjustmentHours = adjustmentHours

	breakdown.AvailableHours = clampZero(breakdown.BaseHours.
		Sub(breakdown.LeaveHours).
		Sub(breakdown.HolidayHours).
		Sub(breakdown.AdjustmentHours))

	return breakdown, nil
}

func (c *Calculator) leaveHours(ctx context.Context, teammateID TeammateID, window Period) (decimal.Decimal, error) {
	leaves, err := c.calendar.LeaveOverlapping(ctx, teammateID, window)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, lp := range leaves {
		clipped, ok := window.Clip(lp.Period())
		if !ok {
			continue
		}
		total = total.Add(lp.HoursPerDay.Mul(DecInt(clipped.Days())))
	}
	return total, nil
}

// holidayHours deducts one day of capacity for each distinct holiday date on
// the calendars of the teams the teammate holds active allocations on.
// Holidays shared by multiple calendars count once.
func (c *Calculator) holidayHours(ctx context.Context, teammate *Teammate, window Period) (decimal.Decimal, error) {
	allocations, err := c.allocations.AllocationsByTeammate(ctx, teammate.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(allocations) == 0 {
		return decimal.Zero, nil
	}

	teamIDs := make([]TeamID, 0, len(allocations))
	for _, a := range allocations {
		teamIDs = append(teamIDs, a.TeamID)
	}

	holidays, err := c.calendar.HolidaysForTeams(ctx, teamIDs, window)
	if err != nil {
		return decimal.Zero, err
	}

	perDay := dailyHours(teammate.BaseCapacityHours, window)

	seen := make(map[string]bool)
	total := decimal.Zero
	for _, h := range holidays {
		if !window.Contains(h.Date) {
			continue
		}
		day := h.Date.String()
		if seen[day] {
			continue
		}
		seen[day] = true
		total = total.Add(perDay)
	}
	return total, nil
}

func (c *Calculator) adjustmentHours(ctx context.Context, teammateID TeammateID, window Period) (decimal.Decimal, error) {
	adjustments, err := c.calendar.AdjustmentsOverlapping(ctx, teammateID, window)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, adj := range adjustments {
		if adj.Start == nil || adj.End == nil {
			// Unbounded adjustment: flat hour total against any period.
			total = total.Add(adj.HoursPerDay)
			continue
		}
		clipped, ok := window.Clip(Period{Start: *adj.Start, End: *adj.End})
		if !ok {
			continue
		}
		total = total.Add(adj.HoursPerDay.Mul(DecInt(clipped.Days())))
	}
	return total, nil
}

// dailyHours spreads base capacity evenly over the period's days. Used to
// price one holiday's deduction in hours.
func dailyHours(baseHours decimal.Decimal, window Period) decimal.Decimal {
	days := window.Days()
	if days == 0 {
		return decimal.Zero
	}
	return baseHours.Div(DecInt(days))
}
