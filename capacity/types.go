/*
Package capacity implements the team capacity allocation engine.

PURPOSE:
  This package contains the domain types and algorithms governing how a
  teammate's finite work capacity is partitioned across teams as percentage
  allocations, how available hours are derived after leave/holiday/adjustment
  deductions, and how utilization and risk are computed from the result.

KEY CONCEPTS IN THIS FILE (types.go):
  - Teammate/Team: The two parties of an allocation
  - Allocation: A teammate's percentage commitment to one team
  - LeavePeriod/Holiday/CapacityAdjustment: Read-only deduction inputs
  - CapacityBreakdown: Derived available-hours figures for one period

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing teammate/team IDs
  3. Derived State: Breakdowns and metrics are computed, never stored
  4. Single Writer: Only the Ledger mutates allocations

SEE ALSO:
  - ledger.go: Allocation mutations and the <=100% invariant
  - calculator.go: CapacityBreakdown computation
  - risk.go: Risk findings derived from ledger + calendar data
  - metrics.go: Team-level rollups
*/
package capacity

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TeammateID string
type TeamID string

// Role is a teammate's function on a team (engineer, EM, designer, ...).
type Role string

const (
	RoleEngineer Role = "ENGINEER"
	RoleManager  Role = "EM"
	RoleDesigner Role = "DESIGNER"
	RoleQA       Role = "QA"
	RoleProduct  Role = "PM"
)

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	// Hundred is the full allocation budget per teammate, in percent.
	Hundred = decimal.NewFromInt(100)
)

func Dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func DecInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// TEAMMATE / TEAM
// =============================================================================

// Teammate is a person with a finite per-period work capacity.
// Teammates are never deleted while allocations reference them; they are
// soft-deactivated instead, which excludes them from every computation.
type Teammate struct {
	ID                TeammateID
	Name              string
	Email             string
	Role              Role
	BaseCapacityHours decimal.Decimal // nominal hours per period, before deductions
	Active            bool
	CreatedAt         time.Time
}

// Team owns zero or more allocations. Its lifecycle is independent of teammates.
type Team struct {
	ID          TeamID
	Name        string
	Description string
	CreatedAt   time.Time
}

// =============================================================================
// ALLOCATION - The ledger entry
// =============================================================================

// Allocation is a teammate's percentage commitment to one team.
//
// INVARIANT: for a given teammate, the sum of Percentage across all of that
// teammate's active allocations never exceeds 100. The Ledger is the only
// writer and enforces this on every mutation.
type Allocation struct {
	ID         string // uuid, for audit references; identity is the (teammate, team) pair
	TeammateID TeammateID
	TeamID     TeamID
	Percentage decimal.Decimal // in (0, 100]
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// DEDUCTION INPUTS - Read-only collaborator data
// =============================================================================

type LeaveType string

const (
	LeaveVacation LeaveType = "vacation"
	LeaveSick     LeaveType = "sick"
	LeaveParental LeaveType = "parental"
	LeaveOther    LeaveType = "other"
)

// LeavePeriod contributes deducted hours to any period it overlaps.
// Supplied by the leave management collaborator; the engine only reads it.
type LeavePeriod struct {
	ID          string
	TeammateID  TeammateID
	Type        LeaveType
	Start       Date
	End         Date
	HoursPerDay decimal.Decimal
}

// Period returns the leave's date range.
func (lp LeavePeriod) Period() Period { return Period{Start: lp.Start, End: lp.End} }

// Holiday is a single calendar holiday. Each holiday occurring within a
// period deducts a day's hours from every teammate on teams linked to the
// holiday's calendar.
type Holiday struct {
	ID         string
	CalendarID string
	Date       Date
	Name       string
}

// CapacityAdjustment is an ad-hoc positive deduction (training, interviews,
// admin time) scoped to a teammate and an optional period.
//
// When Start/End are set, the adjustment is clipped to the queried window
// like leave (HoursPerDay x overlapping days). When nil, HoursPerDay is a
// flat hour total deducted from any queried period.
type CapacityAdjustment struct {
	ID          string
	TeammateID  TeammateID
	Reason      string
	HoursPerDay decimal.Decimal
	Start       *Date
	End         *Date
}

// =============================================================================
// CAPACITY BREAKDOWN - Derived, never stored
// =============================================================================

// CapacityBreakdown is a teammate's derived capacity figures for one period.
// It is a pure function of its inputs and recomputed on every read.
type CapacityBreakdown struct {
	TeammateID      TeammateID
	Period          Period
	BaseHours       decimal.Decimal
	LeaveHours      decimal.Decimal
	HolidayHours    decimal.Decimal
	AdjustmentHours decimal.Decimal
	AvailableHours  decimal.Decimal // max(0, base - leave - holiday - adjustment)

	// Warnings carry data-quality notes (e.g. missing base capacity).
	// They never make the computation fail.
	Warnings []string
}

// AllocatedHours converts an allocation percentage into hours against this
// breakdown's available hours.
func (b *CapacityBreakdown) AllocatedHours(percentage decimal.Decimal) decimal.Decimal {
	return b.AvailableHours.Mul(percentage).Div(Hundred)
}

// Utilization returns allocated hours as a percentage of available hours for
// a single team's allocation percentage.
//
// CONVENTION: when AvailableHours is zero and the allocation percentage is
// positive, utilization is reported as 100 - exhausted capacity with a
// standing commitment is always fully utilized. This avoids a divide by zero
// and matches how dashboards read the figure.
func (b *CapacityBreakdown) Utilization(percentage decimal.Decimal) decimal.Decimal {
	if b.AvailableHours.IsZero() {
		if percentage.IsPositive() {
			return Hundred
		}
		return decimal.Zero
	}
	return b.AllocatedHours(percentage).Div(b.AvailableHours).Mul(Hundred)
}

// =============================================================================
// TEAM METRICS - Derived rollup
// =============================================================================

type CapacityStatus string

const (
	StatusAvailable     CapacityStatus = "AVAILABLE"
	StatusAtCapacity    CapacityStatus = "AT_CAPACITY"
	StatusOverAllocated CapacityStatus = "OVER_ALLOCATED"
)

// TeammateCapacity is one teammate's row inside a team rollup.
type TeammateCapacity struct {
	Teammate    Teammate
	Breakdown   CapacityBreakdown
	Percentage  decimal.Decimal // this teammate's allocation on the rolled-up team
	Allocated   decimal.Decimal // hours
	Utilization decimal.Decimal // percent, team-specific
}

// TrendPoint is one independently recomputed historical period.
type TrendPoint struct {
	Period             Period
	TotalAvailable     decimal.Decimal
	TotalAllocated     decimal.Decimal
	AverageUtilization decimal.Decimal
	Status             CapacityStatus
}

// TeamCapacityMetrics aggregates all teammates' breakdowns for a team.
type TeamCapacityMetrics struct {
	TeamID TeamID
	Period Period

	TotalBaseCapacity      decimal.Decimal
	TotalAvailableCapacity decimal.Decimal
	TotalAllocatedCapacity decimal.Decimal

	// AverageUtilization is the arithmetic mean of per-teammate utilization,
	// NOT capacity-weighted. This matches the dashboard's definition.
	AverageUtilization decimal.Decimal

	Status    CapacityStatus
	Teammates []TeammateCapacity
	Trends    []TrendPoint

	// RiskFactors are advisory findings from the risk assessor.
	RiskFactors []RiskFinding
}

// StatusFor classifies an average utilization figure.
func StatusFor(averageUtilization decimal.Decimal) CapacityStatus {
	switch {
	case averageUtilization.GreaterThan(Hundred):
		return StatusOverAllocated
	case averageUtilization.GreaterThanOrEqual(DecInt(80)):
		return StatusAtCapacity
	default:
		return StatusAvailable
	}
}
