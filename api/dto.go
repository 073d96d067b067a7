/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal-based domain model from the external API contract:
  amounts cross the wire as float64, dates as ISO strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Range and invariant validation is owned entirely by the Allocation
  Ledger. Handlers only check shape (parseable dates, present IDs) and
  surface the ledger's errors; the client is a thin renderer.

SEE ALSO:
  - handlers.go: Uses these types
  - capacity/errors.go: The error taxonomy these DTOs carry
*/
package api

import (
	"time"

	"github.com/warp/capacity-engine/capacity"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TeammateDTO represents a teammate in API responses.
type TeammateDTO struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email,omitempty"`
	Role              string  `json:"role"`
	BaseCapacityHours float64 `json:"base_capacity_hours"`
	Active            bool    `json:"active"`
	CreatedAt         string  `json:"created_at,omitempty"`
}

// CreateTeammateRequest is the request to create a teammate.
type CreateTeammateRequest struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Role              string  `json:"role"`
	BaseCapacityHours float64 `json:"base_capacity_hours"`
}

// TeamDTO represents a team.
type TeamDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateTeamRequest is the request to create a team.
type CreateTeamRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AllocationRequest drives assign and update.
type AllocationRequest struct {
	TeammateID string  `json:"teammate_id"`
	TeamID     string  `json:"team_id"`
	Percentage float64 `json:"percentage"`
}

// AllocationResponse is returned after a successful mutation.
type AllocationResponse struct {
	TeammateID          string  `json:"teammate_id"`
	TeamID              string  `json:"team_id"`
	Percentage          float64 `json:"percentage"`
	RemainingPercentage float64 `json:"remaining_percentage"`
}

// RemoveAllocationRequest identifies the pair to remove.
type RemoveAllocationRequest struct {
	TeammateID string `json:"teammate_id"`
	TeamID     string `json:"team_id"`
}

// BulkAssignRequest adds several teammates to one team. NOT atomic: items
// are attempted independently, in order.
type BulkAssignRequest struct {
	TeamID string           `json:"team_id"`
	Items  []BulkAssignItem `json:"items"`
}

type BulkAssignItem struct {
	TeammateID string  `json:"teammate_id"`
	Percentage float64 `json:"percentage"`
}

// BulkAssignResultDTO reports one item's outcome.
type BulkAssignResultDTO struct {
	TeammateID          string  `json:"teammate_id"`
	OK                  bool    `json:"ok"`
	RemainingPercentage float64 `json:"remaining_percentage,omitempty"`
	Error               string  `json:"error,omitempty"`
	ErrorCode           string  `json:"error_code,omitempty"`
}

// AllocationDTO represents a ledger entry.
type AllocationDTO struct {
	TeammateID string  `json:"teammate_id"`
	TeamID     string  `json:"team_id"`
	Percentage float64 `json:"percentage"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// BreakdownDTO is a teammate's capacity breakdown for a period.
type BreakdownDTO struct {
	TeammateID      string   `json:"teammate_id"`
	PeriodStart     string   `json:"period_start"`
	PeriodEnd       string   `json:"period_end"`
	BaseHours       float64  `json:"base_hours"`
	LeaveHours      float64  `json:"leave_hours"`
	HolidayHours    float64  `json:"holiday_hours"`
	AdjustmentHours float64  `json:"adjustment_hours"`
	AvailableHours  float64  `json:"available_hours"`
	Warnings        []string `json:"warnings,omitempty"`
}

// TeammateCapacityDTO is one row of a team metrics response.
type TeammateCapacityDTO struct {
	TeammateID     string  `json:"teammate_id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Percentage     float64 `json:"percentage"`
	AvailableHours float64 `json:"available_hours"`
	AllocatedHours float64 `json:"allocated_hours"`
	Utilization    float64 `json:"utilization"`
}

// RiskFindingDTO is one advisory finding.
type RiskFindingDTO struct {
	Type              string   `json:"type"`
	Severity          string   `json:"severity"`
	Description       string   `json:"description"`
	ImpactedTeammates []string `json:"impacted_teammates,omitempty"`
}

// TrendPointDTO is one recomputed historical period.
type TrendPointDTO struct {
	PeriodStart        string  `json:"period_start"`
	PeriodEnd          string  `json:"period_end"`
	TotalAvailable     float64 `json:"total_available"`
	TotalAllocated     float64 `json:"total_allocated"`
	AverageUtilization float64 `json:"average_utilization"`
	Status             string  `json:"status"`
}

// TeamMetricsDTO is the full team rollup.
type TeamMetricsDTO struct {
	TeamID                 string                `json:"team_id"`
	PeriodStart            string                `json:"period_start"`
	PeriodEnd              string                `json:"period_end"`
	TotalBaseCapacity      float64               `json:"total_base_capacity"`
	TotalAvailableCapacity float64               `json:"total_available_capacity"`
	TotalAllocatedCapacity float64               `json:"total_allocated_capacity"`
	AverageUtilization     float64               `json:"average_utilization"`
	Status                 string                `json:"capacity_status"`
	Teammates              []TeammateCapacityDTO `json:"teammates"`
	Trends                 []TrendPointDTO       `json:"capacity_trends,omitempty"`
	RiskFactors            []RiskFindingDTO      `json:"risk_factors,omitempty"`
}

// CreateLeaveRequest feeds the leave collaborator's records in.
type CreateLeaveRequest struct {
	TeammateID  string  `json:"teammate_id"`
	Type        string  `json:"type"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	HoursPerDay float64 `json:"hours_per_day"`
}

// LeaveDTO represents one recorded leave period.
type LeaveDTO struct {
	ID          string  `json:"id"`
	TeammateID  string  `json:"teammate_id"`
	Type        string  `json:"type"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	HoursPerDay float64 `json:"hours_per_day"`
}

// CreateHolidayRequest adds one holiday date to a calendar.
type CreateHolidayRequest struct {
	CalendarID string `json:"calendar_id"`
	Date       string `json:"date"`
	Name       string `json:"name"`
}

// LinkCalendarRequest attaches a holiday calendar to a team.
type LinkCalendarRequest struct {
	CalendarID string `json:"calendar_id"`
}

// CreateAdjustmentRequest adds an ad-hoc capacity deduction.
type CreateAdjustmentRequest struct {
	TeammateID  string  `json:"teammate_id"`
	Reason      string  `json:"reason"`
	HoursPerDay float64 `json:"hours_per_day"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
}

// RemainingDTO carries a teammate's remaining allocation budget.
type RemainingDTO struct {
	TeammateID          string  `json:"teammate_id"`
	RemainingPercentage float64 `json:"remaining_percentage"`
}

// ErrorResponse is the standard error response. For capacity-exceeded
// errors RemainingPercentage carries the actionable number so the client
// can offer a corrected value without a second round trip.
type ErrorResponse struct {
	Error               string   `json:"error"`
	Code                string   `json:"code,omitempty"`
	RemainingPercentage *float64 `json:"remaining_percentage,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTeammateDTO(t capacity.Teammate) TeammateDTO {
	base, _ := t.BaseCapacityHours.Float64()
	return TeammateDTO{
		ID:                string(t.ID),
		Name:              t.Name,
		Email:             t.Email,
		Role:              string(t.Role),
		BaseCapacityHours: base,
		Active:            t.Active,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
}

func toTeamDTO(t capacity.Team) TeamDTO {
	return TeamDTO{
		ID:          string(t.ID),
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toAllocationDTO(a capacity.Allocation) AllocationDTO {
	pct, _ := a.Percentage.Float64()
	return AllocationDTO{
		TeammateID: string(a.TeammateID),
		TeamID:     string(a.TeamID),
		Percentage: pct,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  a.UpdatedAt.Format(time.RFC3339),
	}
}

func toBreakdownDTO(b *capacity.CapacityBreakdown) BreakdownDTO {
	base, _ := b.BaseHours.Float64()
	leave, _ := b.LeaveHours.Float64()
	holiday, _ := b.HolidayHours.Float64()
	adjustment, _ := b.AdjustmentHours.Float64()
	available, _ := b.AvailableHours.Float64()
	return BreakdownDTO{
		TeammateID:      string(b.TeammateID),
		PeriodStart:     b.Period.Start.String(),
		PeriodEnd:       b.Period.End.String(),
		BaseHours:       base,
		LeaveHours:      leave,
		HolidayHours:    holiday,
		AdjustmentHours: adjustment,
		AvailableHours:  available,
		Warnings:        b.Warnings,
	}
}

func toLeaveDTO(lp capacity.LeavePeriod) LeaveDTO {
	hours, _ := lp.HoursPerDay.Float64()
	return LeaveDTO{
		ID:          lp.ID,
		TeammateID:  string(lp.TeammateID),
		Type:        string(lp.Type),
		StartDate:   lp.Start.String(),
		EndDate:     lp.End.String(),
		HoursPerDay: hours,
	}
}

func toRiskFindingDTOs(findings []capacity.RiskFinding) []RiskFindingDTO {
	dtos := make([]RiskFindingDTO, len(findings))
	for i, f := range findings {
		impacted := make([]string, len(f.ImpactedTeammates))
		for j, id := range f.ImpactedTeammates {
			impacted[j] = string(id)
		}
		dtos[i] = RiskFindingDTO{
			Type:              string(f.Type),
			Severity:          string(f.Severity),
			Description:       f.Description,
			ImpactedTeammates: impacted,
		}
	}
	return dtos
}

func toTeamMetricsDTO(m *capacity.TeamCapacityMetrics) TeamMetricsDTO {
	base, _ := m.TotalBaseCapacity.Float64()
	available, _ := m.TotalAvailableCapacity.Float64()
	allocated, _ := m.TotalAllocatedCapacity.Float64()
	avg, _ := m.AverageUtilization.Float64()

	dto := TeamMetricsDTO{
		TeamID:                 string(m.TeamID),
		PeriodStart:            m.Period.Start.String(),
		PeriodEnd:              m.Period.End.String(),
		TotalBaseCapacity:      base,
		TotalAvailableCapacity: available,
		TotalAllocatedCapacity: allocated,
		AverageUtilization:     avg,
		Status:                 string(m.Status),
		RiskFactors:            toRiskFindingDTOs(m.RiskFactors),
	}

	for _, row := range m.Teammates {
		pct, _ := row.Percentage.Float64()
		availableHours, _ := row.Breakdown.AvailableHours.Float64()
		allocatedHours, _ := row.Allocated.Float64()
		utilization, _ := row.Utilization.Float64()
		dto.Teammates = append(dto.Teammates, TeammateCapacityDTO{
			TeammateID:     string(row.Teammate.ID),
			Name:           row.Teammate.Name,
			Role:           string(row.Teammate.Role),
			Percentage:     pct,
			AvailableHours: availableHours,
			AllocatedHours: allocatedHours,
			Utilization:    utilization,
		})
	}

	for _, point := range m.Trends {
		totalAvailable, _ := point.TotalAvailable.Float64()
		totalAllocated, _ := point.TotalAllocated.Float64()
		avgUtil, _ := point.AverageUtilization.Float64()
		dto.Trends = append(dto.Trends, TrendPointDTO{
			PeriodStart:        point.Period.Start.String(),
			PeriodEnd:          point.Period.End.String(),
			TotalAvailable:     totalAvailable,
			TotalAllocated:     totalAllocated,
			AverageUtilization: avgUtil,
			Status:             string(point.Status),
		})
	}

	return dto
}
