/*
store.go - Persistence interfaces for the capacity engine

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  DirectoryStore:  Teammate and team records
  AllocationStore: The ledger's backing table (ledger is the ONLY writer)
  CalendarStore:   Leave, holiday, and adjustment records (read-only inputs
                   from the engine's perspective; written by collaborators)
  Store:           All three, implemented by every full backend

OWNERSHIP:
  The Allocation Ledger owns allocation records exclusively. The Capacity
  Calculator only reads teammate/leave/holiday/adjustment records. Leave and
  holiday data are owned by external collaborators and must already be
  consistent by the time the calculator reads them.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - capacity/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Uses AllocationStore
  - calculator.go: Uses DirectoryStore + CalendarStore
*/
package capacity

import "context"

// =============================================================================
// DIRECTORY STORE - Teammates and teams
// =============================================================================

type DirectoryStore interface {
	// GetTeammate returns nil, ErrTeammateNotFound for unknown IDs.
	GetTeammate(ctx context.Context, id TeammateID) (*Teammate, error)
	ListTeammates(ctx context.Context) ([]Teammate, error)
	SaveTeammate(ctx context.Context, t Teammate) error

	// GetTeam returns nil, ErrTeamNotFound for unknown IDs.
	GetTeam(ctx context.Context, id TeamID) (*Team, error)
	ListTeams(ctx context.Context) ([]Team, error)
	SaveTeam(ctx context.Context, t Team) error
}

// =============================================================================
// ALLOCATION STORE - The ledger's backing storage
// =============================================================================

type AllocationStore interface {
	// GetAllocation returns the active allocation for the pair, or
	// nil, nil when absent.
	GetAllocation(ctx context.Context, teammateID TeammateID, teamID TeamID) (*Allocation, error)

	// AllocationsByTeammate returns all active allocations for a teammate.
	AllocationsByTeammate(ctx context.Context, teammateID TeammateID) ([]Allocation, error)

	// AllocationsByTeam returns all active allocations on a team.
	AllocationsByTeam(ctx context.Context, teamID TeamID) ([]Allocation, error)

	// PutAllocation inserts or replaces the allocation for its
	// (teammate, team) pair.
	PutAllocation(ctx context.Context, a Allocation) error

	// DeleteAllocation removes the pair's allocation. Deleting an absent
	// allocation is not an error.
	DeleteAllocation(ctx context.Context, teammateID TeammateID, teamID TeamID) error
}

// =============================================================================
// CALENDAR STORE - Leave, holidays, adjustments
// =============================================================================

type CalendarStore interface {
	// LeaveOverlapping returns a teammate's leave periods intersecting the window.
	LeaveOverlapping(ctx context.Context, teammateID TeammateID, window Period) ([]LeavePeriod, error)
	SaveLeave(ctx context.Context, lp LeavePeriod) error

	// HolidaysForTeams returns holidays within the window from every calendar
	// linked to any of the given teams.
	HolidaysForTeams(ctx context.Context, teamIDs []TeamID, window Period) ([]Holiday, error)
	SaveHoliday(ctx context.Context, h Holiday) error

	// LinkCalendar attaches a holiday calendar to a team.
	LinkCalendar(ctx context.Context, teamID TeamID, calendarID string) error

	// AdjustmentsOverlapping returns a teammate's adjustments intersecting the
	// window, including unbounded adjustments (no period).
	AdjustmentsOverlapping(ctx context.Context, teammateID TeammateID, window Period) ([]CapacityAdjustment, error)
	SaveAdjustment(ctx context.Context, adj CapacityAdjustment) error
}

// =============================================================================
// STORE - Full backend
// =============================================================================

// Store is the complete persistence surface the engine runs on.
type Store interface {
	DirectoryStore
	AllocationStore
	CalendarStore
}
