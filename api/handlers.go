/*
handlers.go - HTTP API handlers for the capacity allocation engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic. The dashboard client is a
  thin renderer: all allocation validation is owned by the ledger, and
  handlers just map its errors onto statuses.

ERROR HANDLING:
  - 400: Invalid percentage, malformed input
  - 404: Unknown teammate/team/allocation
  - 409: Duplicate allocation pair (use update instead)
  - 422: Capacity exceeded; response carries remaining_percentage so the
         client can offer a corrected value inline
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - capacity/errors.go: The taxonomy mapped here
*/
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/capacity-engine/capacity"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *capacity.Engine
	Logger *zap.Logger
}

// NewHandler creates a handler over the engine.
func NewHandler(engine *capacity.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Logger: logger}
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TEAMMATE HANDLERS
// =============================================================================

// ListTeammates returns all teammates.
func (h *Handler) ListTeammates(w http.ResponseWriter, r *http.Request) {
	teammates, err := h.Engine.Store.ListTeammates(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list teammates", err)
		return
	}

	dtos := make([]TeammateDTO, len(teammates))
	for i, t := range teammates {
		dtos[i] = toTeammateDTO(t)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// CreateTeammate creates a new teammate.
func (h *Handler) CreateTeammate(w http.ResponseWriter, r *http.Request) {
	var req CreateTeammateRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	teammate := capacity.Teammate{
		ID:                capacity.TeammateID(req.ID),
		Name:              req.Name,
		Email:             req.Email,
		Role:              capacity.Role(req.Role),
		BaseCapacityHours: capacity.Dec(req.BaseCapacityHours),
		Active:            true,
		CreatedAt:         nowUTC(),
	}
	if err := h.Engine.Store.SaveTeammate(r.Context(), teammate); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save teammate", err)
		return
	}

	h.Logger.Info("teammate created",
		zap.String("teammate_id", req.ID),
		zap.Float64("base_capacity_hours", req.BaseCapacityHours))
	h.writeJSON(w, http.StatusCreated, toTeammateDTO(teammate))
}

// GetTeammate returns a single teammate.
func (h *Handler) GetTeammate(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeammateID(chi.URLParam(r, "id"))

	teammate, err := h.Engine.Store.GetTeammate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTeammateDTO(*teammate))
}

// DeactivateTeammate soft-deactivates a teammate.
func (h *Handler) DeactivateTeammate(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeammateID(chi.URLParam(r, "id"))

	if err := h.Engine.DeactivateTeammate(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.Logger.Info("teammate deactivated", zap.String("teammate_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// GetBreakdown returns a teammate's capacity breakdown for a period.
// GET /api/teammates/{id}/breakdown?start=2026-01-05&end=2026-01-16
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeammateID(chi.URLParam(r, "id"))

	window, err := periodFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	breakdown, err := h.Engine.Calculator.ComputeBreakdown(r.Context(), id, window)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBreakdownDTO(breakdown))
}

// GetRemaining returns a teammate's remaining allocation percentage.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeammateID(chi.URLParam(r, "id"))

	remaining, err := h.Engine.Ledger.RemainingPercentage(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	value, _ := remaining.Float64()
	h.writeJSON(w, http.StatusOK, RemainingDTO{
		TeammateID:          string(id),
		RemainingPercentage: value,
	})
}

// ListTeammateAllocations returns a teammate's active allocations.
func (h *Handler) ListTeammateAllocations(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeammateID(chi.URLParam(r, "id"))

	allocations, err := h.Engine.Ledger.AllocationsForTeammate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = toAllocationDTO(a)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// ListTeams returns all teams.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Engine.Store.ListTeams(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list teams", err)
		return
	}
	dtos := make([]TeamDTO, len(teams))
	for i, t := range teams {
		dtos[i] = toTeamDTO(t)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// CreateTeam creates a new team.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	team := capacity.Team{
		ID:          capacity.TeamID(req.ID),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   nowUTC(),
	}
	if err := h.Engine.Store.SaveTeam(r.Context(), team); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save team", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toTeamDTO(team))
}

// GetTeam returns a single team.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeamID(chi.URLParam(r, "id"))

	team, err := h.Engine.Store.GetTeam(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTeamDTO(*team))
}

// ListTeamAllocations returns a team's active allocations.
func (h *Handler) ListTeamAllocations(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeamID(chi.URLParam(r, "id"))

	allocations, err := h.Engine.Ledger.AllocationsForTeam(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = toAllocationDTO(a)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// GetTeamMetrics returns the team rollup.
// GET /api/teams/{id}/metrics?start=...&end=...&trends=3
// trends=N adds N preceding periods of the same length to the trend series.
func (h *Handler) GetTeamMetrics(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeamID(chi.URLParam(r, "id"))

	window, err := periodFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	history := precedingPeriods(window, intQuery(r, "trends", 0))

	metrics, err := h.Engine.Aggregator.Aggregate(r.Context(), id, window, history)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTeamMetricsDTO(metrics))
}

// GetTeamRisks returns the team's advisory risk findings.
func (h *Handler) GetTeamRisks(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeamID(chi.URLParam(r, "id"))

	window, err := periodFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	findings, err := h.Engine.Assessor.AssessRisks(r.Context(), id, window)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRiskFindingDTOs(findings))
}

// LinkTeamCalendar attaches a holiday calendar to a team.
func (h *Handler) LinkTeamCalendar(w http.ResponseWriter, r *http.Request) {
	id := capacity.TeamID(chi.URLParam(r, "id"))

	var req LinkCalendarRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CalendarID == "" {
		h.writeError(w, http.StatusBadRequest, "calendar_id is required", nil)
		return
	}
	if err := h.Engine.Store.LinkCalendar(r.Context(), id, req.CalendarID); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to link calendar", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ALLOCATION HANDLERS - The ledger's mutation surface
// =============================================================================

// Assign creates a new allocation.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AllocationRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	remaining, err := h.Engine.Ledger.Assign(r.Context(),
		capacity.TeammateID(req.TeammateID),
		capacity.TeamID(req.TeamID),
		capacity.Dec(req.Percentage))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Logger.Debug("allocation assigned",
		zap.String("teammate_id", req.TeammateID),
		zap.String("team_id", req.TeamID),
		zap.Float64("percentage", req.Percentage))

	value, _ := remaining.Float64()
	h.writeJSON(w, http.StatusCreated, AllocationResponse{
		TeammateID:          req.TeammateID,
		TeamID:              req.TeamID,
		Percentage:          req.Percentage,
		RemainingPercentage: value,
	})
}

// UpdateAllocation changes an existing allocation's percentage.
func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	var req AllocationRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	remaining, err := h.Engine.Ledger.Update(r.Context(),
		capacity.TeammateID(req.TeammateID),
		capacity.TeamID(req.TeamID),
		capacity.Dec(req.Percentage))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	value, _ := remaining.Float64()
	h.writeJSON(w, http.StatusOK, AllocationResponse{
		TeammateID:          req.TeammateID,
		TeamID:              req.TeamID,
		Percentage:          req.Percentage,
		RemainingPercentage: value,
	})
}

// RemoveAllocation deletes an allocation. Idempotent.
func (h *Handler) RemoveAllocation(w http.ResponseWriter, r *http.Request) {
	var req RemoveAllocationRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.Ledger.Remove(r.Context(),
		capacity.TeammateID(req.TeammateID),
		capacity.TeamID(req.TeamID)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkAssign adds several teammates to one team. Items are attempted
// independently in request order; the response distinguishes per-item
// outcomes and a later failure does not undo earlier successes.
func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	var req BulkAssignRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]capacity.BatchAssignment, len(req.Items))
	for i, item := range req.Items {
		items[i] = capacity.BatchAssignment{
			TeammateID: capacity.TeammateID(item.TeammateID),
			Percentage: capacity.Dec(item.Percentage),
		}
	}

	results := h.Engine.Ledger.AssignBatch(r.Context(), capacity.TeamID(req.TeamID), items)

	dtos := make([]BulkAssignResultDTO, len(results))
	status := http.StatusOK
	for i, res := range results {
		dto := BulkAssignResultDTO{TeammateID: string(res.TeammateID), OK: res.Err == nil}
		if res.Err != nil {
			dto.Error = res.Err.Error()
			dto.ErrorCode = errorCode(res.Err)
			status = http.StatusMultiStatus
		} else {
			dto.RemainingPercentage, _ = res.Remaining.Float64()
		}
		dtos[i] = dto
	}
	h.writeJSON(w, status, dtos)
}

// =============================================================================
// COLLABORATOR FEED HANDLERS - Leave, holidays, adjustments
// =============================================================================

// CreateLeave records a leave period supplied by the leave collaborator.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := capacity.ParseDate(req.StartDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := capacity.ParseDate(req.EndDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	if end.Before(start) {
		h.writeError(w, http.StatusBadRequest, "end_date before start_date", capacity.ErrInvalidPeriod)
		return
	}

	lp := capacity.LeavePeriod{
		ID:          uuid.NewString(),
		TeammateID:  capacity.TeammateID(req.TeammateID),
		Type:        capacity.LeaveType(req.Type),
		Start:       start,
		End:         end,
		HoursPerDay: capacity.Dec(req.HoursPerDay),
	}
	if err := h.Engine.Store.SaveLeave(r.Context(), lp); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save leave", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": lp.ID})
}

// ListLeave returns a teammate's leave periods overlapping a window.
// GET /api/leave?teammate_id=alice&start=...&end=...
func (h *Handler) ListLeave(w http.ResponseWriter, r *http.Request) {
	teammateID := capacity.TeammateID(r.URL.Query().Get("teammate_id"))
	if teammateID == "" {
		h.writeError(w, http.StatusBadRequest, "teammate_id is required", nil)
		return
	}

	window, err := periodFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	leaves, err := h.Engine.Store.LeaveOverlapping(r.Context(), teammateID, window)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list leave", err)
		return
	}
	dtos := make([]LeaveDTO, len(leaves))
	for i, lp := range leaves {
		dtos[i] = toLeaveDTO(lp)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds one holiday date to a calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := capacity.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	holiday := capacity.Holiday{
		ID:         uuid.NewString(),
		CalendarID: req.CalendarID,
		Date:       date,
		Name:       req.Name,
	}
	if err := h.Engine.Store.SaveHoliday(r.Context(), holiday); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": holiday.ID})
}

// CreateAdjustment adds an ad-hoc capacity deduction.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentRequest
	if err := h.decode(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	adj := capacity.CapacityAdjustment{
		ID:          uuid.NewString(),
		TeammateID:  capacity.TeammateID(req.TeammateID),
		Reason:      req.Reason,
		HoursPerDay: capacity.Dec(req.HoursPerDay),
	}
	if req.StartDate != "" && req.EndDate != "" {
		start, err := capacity.ParseDate(req.StartDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid start_date", err)
			return
		}
		end, err := capacity.ParseDate(req.EndDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid end_date", err)
			return
		}
		adj.Start, adj.End = &start, &end
	}

	if err := h.Engine.Store.SaveAdjustment(r.Context(), adj); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save adjustment", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": adj.ID})
}

// =============================================================================
// HELPERS
// =============================================================================

func nowUTC() time.Time {
	return time.Now().UTC()
}

func (h *Handler) decode(body io.Reader, dst any) error {
	return json.NewDecoder(body).Decode(dst)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Error = message + ": " + err.Error()
		resp.Code = errorCode(err)
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	h.writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
// CapacityExceeded is a recoverable validation error: the response carries
// the teammate's actual remaining percentage.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var exceeded *capacity.CapacityExceededError
	if errors.As(err, &exceeded) {
		remaining, _ := exceeded.Remaining.Float64()
		h.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:               err.Error(),
			Code:                errorCode(err),
			RemainingPercentage: &remaining,
		})
		return
	}

	switch {
	case capacity.IsNotFound(err):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
	case capacity.IsConflict(err):
		h.writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
	case capacity.IsClientError(err):
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
	default:
		h.Logger.Error("internal error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, capacity.ErrInvalidPercentage):
		return "INVALID_PERCENTAGE"
	case errors.Is(err, capacity.ErrDuplicateAllocation):
		return "DUPLICATE_ALLOCATION"
	case errors.Is(err, capacity.ErrCapacityExceeded):
		return "CAPACITY_EXCEEDED"
	case errors.Is(err, capacity.ErrAllocationNotFound),
		errors.Is(err, capacity.ErrTeammateNotFound),
		errors.Is(err, capacity.ErrTeamNotFound):
		return "NOT_FOUND"
	case errors.Is(err, capacity.ErrTeammateInactive):
		return "TEAMMATE_INACTIVE"
	case errors.Is(err, capacity.ErrInvalidPeriod):
		return "INVALID_PERIOD"
	default:
		return ""
	}
}

// periodFromQuery reads ?start=YYYY-MM-DD&end=YYYY-MM-DD. Defaults to the
// current 14-day window when absent.
func periodFromQuery(r *http.Request) (capacity.Period, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" && endStr == "" {
		today := capacity.Today()
		return capacity.Period{Start: today, End: today.AddDays(13)}, nil
	}

	start, err := capacity.ParseDate(startStr)
	if err != nil {
		return capacity.Period{}, err
	}
	end, err := capacity.ParseDate(endStr)
	if err != nil {
		return capacity.Period{}, err
	}
	window := capacity.Period{Start: start, End: end}
	if !window.IsValid() {
		return capacity.Period{}, capacity.ErrInvalidPeriod
	}
	return window, nil
}

// precedingPeriods returns n periods of the same length immediately before
// the window, most recent first.
func precedingPeriods(window capacity.Period, n int) []capacity.Period {
	var history []capacity.Period
	length := window.Days()
	current := window
	for i := 0; i < n; i++ {
		end := current.Start.AddDays(-1)
		start := end.AddDays(-(length - 1))
		current = capacity.Period{Start: start, End: end}
		history = append(history, current)
	}
	return history
}

func intQuery(r *http.Request, key string, fallback int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return fallback
	}
	n := 0
	for _, c := range val {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
