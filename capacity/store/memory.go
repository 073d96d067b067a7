// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/capacity-engine/capacity"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	teammates map[capacity.TeammateID]capacity.Teammate
	teams     map[capacity.TeamID]capacity.Team

	allocations map[allocKey]capacity.Allocation

	leave         map[capacity.TeammateID][]capacity.LeavePeriod
	holidays      map[string][]capacity.Holiday // by calendar ID
	teamCalendars map[capacity.TeamID][]string
	adjustments   map[capacity.TeammateID][]capacity.CapacityAdjustment
}

type allocKey struct {
	Teammate capacity.TeammateID
	Team     capacity.TeamID
}

func NewMemory() *Memory {
	return &Memory{
		teammates:     make(map[capacity.TeammateID]capacity.Teammate),
		teams:         make(map[capacity.TeamID]capacity.Team),
		allocations:   make(map[allocKey]capacity.Allocation),
		leave:         make(map[capacity.TeammateID][]capacity.LeavePeriod),
		holidays:      make(map[string][]capacity.Holiday),
		teamCalendars: make(map[capacity.TeamID][]string),
		adjustments:   make(map[capacity.TeammateID][]capacity.CapacityAdjustment),
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) GetTeammate(_ context.Context, id capacity.TeammateID) (*capacity.Teammate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teammates[id]
	if !ok {
		return nil, capacity.ErrTeammateNotFound
	}
	return &t, nil
}

func (m *Memory) ListTeammates(_ context.Context) ([]capacity.Teammate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]capacity.Teammate, 0, len(m.teammates))
	for _, t := range m.teammates {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveTeammate(_ context.Context, t capacity.Teammate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teammates[t.ID] = t
	return nil
}

func (m *Memory) GetTeam(_ context.Context, id capacity.TeamID) (*capacity.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teams[id]
	if !ok {
		return nil, capacity.ErrTeamNotFound
	}
	return &t, nil
}

func (m *Memory) ListTeams(_ context.Context) ([]capacity.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]capacity.Team, 0, len(m.teams))
	for _, t := range m.teams {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveTeam(_ context.Context, t capacity.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
	return nil
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (m *Memory) GetAllocation(_ context.Context, teammateID capacity.TeammateID, teamID capacity.TeamID) (*capacity.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.allocations[allocKey{Teammate: teammateID, Team: teamID}]
	if !ok || !a.Active {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) AllocationsByTeammate(_ context.Context, teammateID capacity.TeammateID) ([]capacity.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []capacity.Allocation
	for k, a := range m.allocations {
		if k.Teammate == teammateID && a.Active {
			result = append(result, a)
		}
	}
	sortAllocations(result)
	return result, nil
}

func (m *Memory) AllocationsByTeam(_ context.Context, teamID capacity.TeamID) ([]capacity.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []capacity.Allocation
	for k, a := range m.allocations {
		if k.Team == teamID && a.Active {
			result = append(result, a)
		}
	}
	sortAllocations(result)
	return result, nil
}

func (m *Memory) PutAllocation(_ context.Context, a capacity.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations[allocKey{Teammate: a.TeammateID, Team: a.TeamID}] = a
	return nil
}

func (m *Memory) DeleteAllocation(_ context.Context, teammateID capacity.TeammateID, teamID capacity.TeamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.allocations, allocKey{Teammate: teammateID, Team: teamID})
	return nil
}

func sortAllocations(allocs []capacity.Allocation) {
	sort.Slice(allocs, func(i, j int) bool {
		if allocs[i].TeammateID != allocs[j].TeammateID {
			return allocs[i].TeammateID < allocs[j].TeammateID
		}
		return allocs[i].TeamID < allocs[j].TeamID
	})
}

// =============================================================================
// CALENDAR
// =============================================================================

func (m *Memory) LeaveOverlapping(_ context.Context, teammateID capacity.TeammateID, window capacity.Period) ([]capacity.LeavePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []capacity.LeavePeriod
	for _, lp := range m.leave[teammateID] {
		if window.Overlaps(lp.Period()) {
			result = append(result, lp)
		}
	}
	return result, nil
}

func (m *Memory) SaveLeave(_ context.Context, lp capacity.LeavePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leave[lp.TeammateID] = append(m.leave[lp.TeammateID], lp)
	return nil
}

func (m *Memory) HolidaysForTeams(_ context.Context, teamIDs []capacity.TeamID, window capacity.Period) ([]capacity.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seenCalendars := make(map[string]bool)
	var result []capacity.Holiday
	for _, teamID := range teamIDs {
		for _, calendarID := range m.teamCalendars[teamID] {
			if seenCalendars[calendarID] {
				continue
			}
			seenCalendars[calendarID] = true
			for _, h := range m.holidays[calendarID] {
				if window.Contains(h.Date) {
					result = append(result, h)
				}
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h capacity.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.CalendarID] = append(m.holidays[h.CalendarID], h)
	return nil
}

func (m *Memory) LinkCalendar(_ context.Context, teamID capacity.TeamID, calendarID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.teamCalendars[teamID] {
		if existing == calendarID {
			return nil
		}
	}
	m.teamCalendars[teamID] = append(m.teamCalendars[teamID], calendarID)
	return nil
}

func (m *Memory) AdjustmentsOverlapping(_ context.Context, teammateID capacity.TeammateID, window capacity.Period) ([]capacity.CapacityAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []capacity.CapacityAdjustment
	for _, adj := range m.adjustments[teammateID] {
		if adj.Start == nil || adj.End == nil {
			result = append(result, adj)
			continue
		}
		if window.Overlaps(capacity.Period{Start: *adj.Start, End: *adj.End}) {
			result = append(result, adj)
		}
	}
	return result, nil
}

func (m *Memory) SaveAdjustment(_ context.Context, adj capacity.CapacityAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[adj.TeammateID] = append(m.adjustments[adj.TeammateID], adj)
	return nil
}
