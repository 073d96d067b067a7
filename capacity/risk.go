/*
risk.go - Advisory risk findings for a team's capacity health

PURPOSE:
  Scans a team's ledger entries plus upcoming leave/holiday data and
  produces qualified findings. Findings are advisory only - they never
  block a ledger mutation; they exist for human review.

RULES (evaluated independently; a team can trigger several at once):
  OVER_ALLOCATED:          team-specific utilization above 100, severity
                           scaling with the overage
  UPCOMING_LEAVES:         heavy leave starting inside the forward window
  SINGLE_POINT_OF_FAILURE: a role held by exactly one not-fully-available
                           teammate
  SKILL_GAP:               a demanded role with zero active holders; the
                           demand signal comes from an optional external
                           collaborator and the rule is skipped without it

SEE ALSO:
  - metrics.go: Attaches findings to team rollups as RiskFactors
*/
package capacity

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FINDINGS
// =============================================================================

type RiskType string

const (
	RiskOverAllocated        RiskType = "OVER_ALLOCATED"
	RiskUpcomingLeaves       RiskType = "UPCOMING_LEAVES"
	RiskSinglePointOfFailure RiskType = "SINGLE_POINT_OF_FAILURE"
	RiskSkillGap             RiskType = "SKILL_GAP"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// RiskFinding is one advisory observation about team capacity health.
type RiskFinding struct {
	Type              RiskType
	Severity          Severity
	Description       string
	ImpactedTeammates []TeammateID
}

// RoleDemand supplies the role-requirement signal for SKILL_GAP from the
// external work-item collaborator. Optional: a nil RoleDemand skips the rule.
type RoleDemand interface {
	RequiredRoles(ctx context.Context, teamID TeamID) ([]Role, error)
}

// =============================================================================
// ASSESSOR
// =============================================================================

// DefaultLeaveWindowDays is the forward-looking window for UPCOMING_LEAVES.
const DefaultLeaveWindowDays = 14

// leaveHoursThreshold: a leave is "heavy" when its hours exceed this share
// of the teammate's available hours for the period.
var leaveHoursThreshold = Dec(0.20)

// Assessor produces risk findings. Stateless; safe for concurrent use.
type Assessor struct {
	directory  DirectoryStore
	ledger     *Ledger
	calculator *Calculator
	calendar   CalendarStore
	demand     RoleDemand // may be nil

	// LeaveWindowDays overrides DefaultLeaveWindowDays when positive.
	LeaveWindowDays int

	// today is swappable for tests.
	today func() Date
}

func NewAssessor(directory DirectoryStore, ledger *Ledger, calculator *Calculator, calendar CalendarStore, demand RoleDemand) *Assessor {
	return &Assessor{
		directory:  directory,
		ledger:     ledger,
		calculator: calculator,
		calendar:   calendar,
		demand:     demand,
		today:      Today,
	}
}

// AssessRisks evaluates every rule against the team for the given period.
func (a *Assessor) AssessRisks(ctx context.Context, teamID TeamID, window Period) ([]RiskFinding, error) {
	allocations, err := a.ledger.AllocationsForTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	// Resolve the roster once; every rule walks it.
	roster, err := a.roster(ctx, allocations, window)
	if err != nil {
		return nil, err
	}

	var findings []RiskFinding

	findings = append(findings, a.overAllocated(roster)...)

	upcoming, err := a.upcomingLeaves(ctx, roster)
	if err != nil {
		return nil, err
	}
	findings = append(findings, upcoming...)

	findings = append(findings, a.singlePointsOfFailure(roster)...)

	if a.demand != nil {
		gaps, err := a.skillGaps(ctx, teamID, roster)
		if err != nil {
			return nil, err
		}
		findings = append(findings, gaps...)
	}

	return findings, nil
}

// rosterEntry pairs a teammate with their team allocation and breakdown.
type rosterEntry struct {
	teammate    Teammate
	percentage  decimal.Decimal
	breakdown   *CapacityBreakdown
	utilization decimal.Decimal
}

func (a *Assessor) roster(ctx context.Context, allocations []Allocation, window Period) ([]rosterEntry, error) {
	entries := make([]rosterEntry, 0, len(allocations))
	for _, alloc := range allocations {
		teammate, err := a.directory.GetTeammate(ctx, alloc.TeammateID)
		if err != nil {
			return nil, err
		}
		if !teammate.Active {
			continue
		}
		breakdown, err := a.calculator.ComputeBreakdown(ctx, teammate.ID, window)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rosterEntry{
			teammate:    *teammate,
			percentage:  alloc.Percentage,
			breakdown:   breakdown,
			utilization: breakdown.Utilization(alloc.Percentage),
		})
	}
	return entries, nil
}

// =============================================================================
// RULE: OVER_ALLOCATED
// =============================================================================

func (a *Assessor) overAllocated(roster []rosterEntry) []RiskFinding {
	var findings []RiskFinding
	for _, entry := range roster {
		if !entry.utilization.GreaterThan(Hundred) {
			continue
		}
		overage := entry.utilization.Sub(Hundred)
		findings = append(findings, RiskFinding{
			Type:     RiskOverAllocated,
			Severity: overAllocationSeverity(overage),
			Description: fmt.Sprintf("%s is at %s%% utilization on this team (%s percentage points over)",
				entry.teammate.Name, entry.utilization.Round(1).String(), overage.Round(1).String()),
			ImpactedTeammates: []TeammateID{entry.teammate.ID},
		})
	}
	return findings
}

// overAllocationSeverity scales with the overage in percentage points:
// <10 LOW, <25 MEDIUM, <50 HIGH, else CRITICAL.
func overAllocationSeverity(overage decimal.Decimal) Severity {
	switch {
	case overage.LessThan(DecInt(10)):
		return SeverityLow
	case overage.LessThan(DecInt(25)):
		return SeverityMedium
	case overage.LessThan(DecInt(50)):
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// =============================================================================
// RULE: UPCOMING_LEAVES
// =============================================================================

func (a *Assessor) upcomingLeaves(ctx context.Context, roster []rosterEntry) ([]RiskFinding, error) {
	windowDays := a.LeaveWindowDays
	if windowDays <= 0 {
		windowDays = DefaultLeaveWindowDays
	}
	today := a.today()
	horizon := Period{Start: today, End: today.AddDays(windowDays)}

	largest := largestAllocation(roster)

	var findings []RiskFinding
	for _, entry := range roster {
		leaves, err := a.calendar.LeaveOverlapping(ctx, entry.teammate.ID, horizon)
		if err != nil {
			return nil, err
		}

		for _, lp := range leaves {
			// Only leaves STARTING inside the window count as upcoming.
			if !horizon.Contains(lp.Start) {
				continue
			}
			leaveHours := lp.HoursPerDay.Mul(DecInt(lp.Period().Days()))
			if !exceedsAvailableShare(leaveHours, entry.breakdown.AvailableHours) {
				continue
			}

			severity := SeverityMedium
			if entry.teammate.ID == largest {
				// The team's largest allocation going on leave hurts most.
				severity = SeverityHigh
			}
			findings = append(findings, RiskFinding{
				Type:     RiskUpcomingLeaves,
				Severity: severity,
				Description: fmt.Sprintf("%s has %s hours of %s leave starting %s",
					entry.teammate.Name, leaveHours.String(), lp.Type, lp.Start),
				ImpactedTeammates: []TeammateID{entry.teammate.ID},
			})
			break // one finding per teammate
		}
	}
	return findings, nil
}

// exceedsAvailableShare reports whether leave hours exceed the threshold
// share of available hours. Zero available hours with any leave qualifies.
func exceedsAvailableShare(leaveHours, availableHours decimal.Decimal) bool {
	if !leaveHours.IsPositive() {
		return false
	}
	if availableHours.IsZero() {
		return true
	}
	return leaveHours.GreaterThan(availableHours.Mul(leaveHoursThreshold))
}

func largestAllocation(roster []rosterEntry) TeammateID {
	var id TeammateID
	max := decimal.Zero
	for _, entry := range roster {
		if entry.percentage.GreaterThan(max) {
			max = entry.percentage
			id = entry.teammate.ID
		}
	}
	return id
}

// =============================================================================
// RULE: SINGLE_POINT_OF_FAILURE
// =============================================================================

func (a *Assessor) singlePointsOfFailure(roster []rosterEntry) []RiskFinding {
	byRole := make(map[Role][]rosterEntry)
	for _, entry := range roster {
		byRole[entry.teammate.Role] = append(byRole[entry.teammate.Role], entry)
	}

	roles := make([]Role, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	var findings []RiskFinding
	for _, role := range roles {
		holders := byRole[role]
		if len(holders) != 1 {
			continue
		}
		sole := holders[0]
		if fullyAvailable(sole) {
			continue
		}
		findings = append(findings, RiskFinding{
			Type:     RiskSinglePointOfFailure,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("%s is the only %s on the team and is not fully available",
				sole.teammate.Name, role),
			ImpactedTeammates: []TeammateID{sole.teammate.ID},
		})
	}
	return findings
}

// fullyAvailable: no deductions ate into the base capacity.
func fullyAvailable(entry rosterEntry) bool {
	return entry.breakdown.AvailableHours.Equal(entry.breakdown.BaseHours) &&
		entry.breakdown.BaseHours.IsPositive()
}

// =============================================================================
// RULE: SKILL_GAP
// =============================================================================

func (a *Assessor) skillGaps(ctx context.Context, teamID TeamID, roster []rosterEntry) ([]RiskFinding, error) {
	required, err := a.demand.RequiredRoles(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("query role demand: %w", err)
	}

	held := make(map[Role]bool, len(roster))
	for _, entry := range roster {
		held[entry.teammate.Role] = true
	}

	var findings []RiskFinding
	for _, role := range required {
		if held[role] {
			continue
		}
		findings = append(findings, RiskFinding{
			Type:        RiskSkillGap,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("team has no active teammate with role %s required by its open work", role),
		})
	}
	return findings, nil
}
