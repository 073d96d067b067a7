/*
Package sqlite provides a SQLite-backed implementation of capacity.Store.

PURPOSE:
  Durable persistence for allocation ledger entries and the four upstream
  record kinds (teammates/teams, leave, holidays, adjustments). The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  capacity.DirectoryStore:  Teammate and team records
  capacity.AllocationStore: The ledger's backing table
  capacity.CalendarStore:   Leave, holiday, and adjustment records

KEY TABLES:
  teammates, teams:   Directory records
  allocations:        Ledger entries, one active (teammate, team) pair each
  leave_periods:      Leave-management collaborator feed
  holidays:           Holiday dates keyed by calendar
  team_calendars:     Team-to-calendar links
  adjustments:        Ad-hoc capacity deductions

CONCURRENCY:
  The ledger serializes per-teammate mutations above this layer; a
  sync.RWMutex guards the connection for cross-teammate safety. SQLite is
  opened in WAL mode so readers don't block.

AMOUNTS:
  Decimal values (hours, percentages) are stored as TEXT and parsed with
  shopspring/decimal. No float columns for capacity math.

SEE ALSO:
  - capacity/store.go: Interface definitions
  - capacity/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/capacity"
)

// Store implements capacity.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teammates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL,
		base_capacity_hours TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	-- The ledger's backing table. One active allocation per pair.
	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT NOT NULL,
		teammate_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		percentage TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (teammate_id, team_id)
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_teammate
		ON allocations(teammate_id) WHERE active;
	CREATE INDEX IF NOT EXISTS idx_allocations_team
		ON allocations(team_id) WHERE active;

	CREATE TABLE IF NOT EXISTS leave_periods (
		id TEXT PRIMARY KEY,
		teammate_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		hours_per_day TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_teammate_dates
		ON leave_periods(teammate_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_calendar_date
		ON holidays(calendar_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(calendar_id, date, name);

	CREATE TABLE IF NOT EXISTS team_calendars (
		team_id TEXT NOT NULL,
		calendar_id TEXT NOT NULL,
		PRIMARY KEY (team_id, calendar_id)
	);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		teammate_id TEXT NOT NULL,
		reason TEXT,
		hours_per_day TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_teammate
		ON adjustments(teammate_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY STORE (capacity.DirectoryStore interface)
// =============================================================================

func (s *Store) GetTeammate(ctx context.Context, id capacity.TeammateID) (*capacity.Teammate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, base_capacity_hours, active, created_at
		FROM teammates WHERE id = ?`, id)

	teammate, err := scanTeammate(row)
	if err == sql.ErrNoRows {
		return nil, capacity.ErrTeammateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teammate: %w", err)
	}
	return teammate, nil
}

func (s *Store) ListTeammates(ctx context.Context) ([]capacity.Teammate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, base_capacity_hours, active, created_at
		FROM teammates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teammates: %w", err)
	}
	defer rows.Close()

	var teammates []capacity.Teammate
	for rows.Next() {
		t, err := scanTeammate(rows)
		if err != nil {
			return nil, err
		}
		teammates = append(teammates, *t)
	}
	return teammates, rows.Err()
}

func (s *Store) SaveTeammate(ctx context.Context, t capacity.Teammate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teammates (id, name, email, role, base_capacity_hours, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			base_capacity_hours = excluded.base_capacity_hours,
			active = excluded.active`,
		t.ID, t.Name, t.Email, t.Role,
		t.BaseCapacityHours.String(), t.Active,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save teammate: %w", err)
	}
	return nil
}

func (s *Store) GetTeam(ctx context.Context, id capacity.TeamID) (*capacity.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		team        capacity.Team
		description sql.NullString
		createdAt   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM teams WHERE id = ?`, id).
		Scan(&team.ID, &team.Name, &description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, capacity.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	team.Description = description.String
	team.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &team, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]capacity.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []capacity.Team
	for rows.Next() {
		var (
			team        capacity.Team
			description sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&team.ID, &team.Name, &description, &createdAt); err != nil {
			return nil, err
		}
		team.Description = description.String
		team.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *Store) SaveTeam(ctx context.Context, t capacity.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description`,
		t.ID, t.Name, t.Description, t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

// =============================================================================
// ALLOCATION STORE (capacity.AllocationStore interface)
// =============================================================================

func (s *Store) GetAllocation(ctx context.Context, teammateID capacity.TeammateID, teamID capacity.TeamID) (*capacity.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, teammate_id, team_id, percentage, active, created_at, updated_at
		FROM allocations
		WHERE teammate_id = ? AND team_id = ? AND active`, teammateID, teamID)

	alloc, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return alloc, nil
}

func (s *Store) AllocationsByTeammate(ctx context.Context, teammateID capacity.TeammateID) ([]capacity.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT id, teammate_id, team_id, percentage, active, created_at, updated_at
		FROM allocations WHERE teammate_id = ? AND active
		ORDER BY team_id`, teammateID)
}

func (s *Store) AllocationsByTeam(ctx context.Context, teamID capacity.TeamID) ([]capacity.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT id, teammate_id, team_id, percentage, active, created_at, updated_at
		FROM allocations WHERE team_id = ? AND active
		ORDER BY teammate_id`, teamID)
}

func (s *Store) PutAllocation(ctx context.Context, a capacity.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO allocations (id, teammate_id, team_id, percentage, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(teammate_id, team_id) DO UPDATE SET
			percentage = excluded.percentage,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		a.ID, a.TeammateID, a.TeamID, a.Percentage.String(), a.Active,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put allocation: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllocation(ctx context.Context, teammateID capacity.TeammateID, teamID capacity.TeamID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM allocations WHERE teammate_id = ? AND team_id = ?`,
		teammateID, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}
	return nil
}

func (s *Store) queryAllocations(ctx context.Context, query string, args ...any) ([]capacity.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []capacity.Allocation
	for rows.Next() {
		alloc, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, *alloc)
	}
	return allocations, rows.Err()
}

// =============================================================================
// CALENDAR STORE (capacity.CalendarStore interface)
// =============================================================================

func (s *Store) LeaveOverlapping(ctx context.Context, teammateID capacity.TeammateID, window capacity.Period) ([]capacity.LeavePeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, teammate_id, leave_type, start_date, end_date, hours_per_day
		FROM leave_periods
		WHERE teammate_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		teammateID, window.End.String(), window.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leave periods: %w", err)
	}
	defer rows.Close()

	var leaves []capacity.LeavePeriod
	for rows.Next() {
		var (
			lp          capacity.LeavePeriod
			start, end  string
			hoursPerDay string
		)
		if err := rows.Scan(&lp.ID, &lp.TeammateID, &lp.Type, &start, &end, &hoursPerDay); err != nil {
			return nil, err
		}
		if lp.Start, err = capacity.ParseDate(start); err != nil {
			return nil, fmt.Errorf("invalid leave start date %q: %w", start, err)
		}
		if lp.End, err = capacity.ParseDate(end); err != nil {
			return nil, fmt.Errorf("invalid leave end date %q: %w", end, err)
		}
		if lp.HoursPerDay, err = decimal.NewFromString(hoursPerDay); err != nil {
			return nil, fmt.Errorf("invalid leave hours %q: %w", hoursPerDay, err)
		}
		leaves = append(leaves, lp)
	}
	return leaves, rows.Err()
}

func (s *Store) SaveLeave(ctx context.Context, lp capacity.LeavePeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_periods (id, teammate_id, leave_type, start_date, end_date, hours_per_day)
		VALUES (?, ?, ?, ?, ?, ?)`,
		lp.ID, lp.TeammateID, lp.Type, lp.Start.String(), lp.End.String(), lp.HoursPerDay.String())
	if err != nil {
		return fmt.Errorf("failed to save leave period: %w", err)
	}
	return nil
}

func (s *Store) HolidaysForTeams(ctx context.Context, teamIDs []capacity.TeamID, window capacity.Period) ([]capacity.Holiday, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(teamIDs)), ",")
	args := make([]any, 0, len(teamIDs)+2)
	for _, id := range teamIDs {
		args = append(args, id)
	}
	args = append(args, window.Start.String(), window.End.String())

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT h.id, h.calendar_id, h.date, h.name
		FROM holidays h
		JOIN team_calendars tc ON tc.calendar_id = h.calendar_id
		WHERE tc.team_id IN (`+placeholders+`) AND h.date >= ? AND h.date <= ?
		ORDER BY h.date`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []capacity.Holiday
	for rows.Next() {
		var (
			h    capacity.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &h.CalendarID, &date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = capacity.ParseDate(date); err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", date, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) SaveHoliday(ctx context.Context, h capacity.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, calendar_id, date, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(calendar_id, date, name) DO NOTHING`,
		h.ID, h.CalendarID, h.Date.String(), h.Name)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) LinkCalendar(ctx context.Context, teamID capacity.TeamID, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_calendars (team_id, calendar_id)
		VALUES (?, ?)
		ON CONFLICT(team_id, calendar_id) DO NOTHING`,
		teamID, calendarID)
	if err != nil {
		return fmt.Errorf("failed to link calendar: %w", err)
	}
	return nil
}

func (s *Store) AdjustmentsOverlapping(ctx context.Context, teammateID capacity.TeammateID, window capacity.Period) ([]capacity.CapacityAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Unbounded adjustments (no period) always apply.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, teammate_id, reason, hours_per_day, start_date, end_date
		FROM adjustments
		WHERE teammate_id = ?
		  AND (start_date IS NULL OR (start_date <= ? AND end_date >= ?))`,
		teammateID, window.End.String(), window.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []capacity.CapacityAdjustment
	for rows.Next() {
		var (
			adj         capacity.CapacityAdjustment
			reason      sql.NullString
			hoursPerDay string
			start, end  sql.NullString
		)
		if err := rows.Scan(&adj.ID, &adj.TeammateID, &reason, &hoursPerDay, &start, &end); err != nil {
			return nil, err
		}
		adj.Reason = reason.String
		if adj.HoursPerDay, err = decimal.NewFromString(hoursPerDay); err != nil {
			return nil, fmt.Errorf("invalid adjustment hours %q: %w", hoursPerDay, err)
		}
		if start.Valid && end.Valid {
			sd, err := capacity.ParseDate(start.String)
			if err != nil {
				return nil, fmt.Errorf("invalid adjustment start date %q: %w", start.String, err)
			}
			ed, err := capacity.ParseDate(end.String)
			if err != nil {
				return nil, fmt.Errorf("invalid adjustment end date %q: %w", end.String, err)
			}
			adj.Start, adj.End = &sd, &ed
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, rows.Err()
}

func (s *Store) SaveAdjustment(ctx context.Context, adj capacity.CapacityAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var start, end any
	if adj.Start != nil && adj.End != nil {
		start, end = adj.Start.String(), adj.End.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adjustments (id, teammate_id, reason, hours_per_day, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		adj.ID, adj.TeammateID, adj.Reason, adj.HoursPerDay.String(), start, end)
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	return nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeammate(row rowScanner) (*capacity.Teammate, error) {
	var (
		t         capacity.Teammate
		email     sql.NullString
		baseHours string
		createdAt string
	)
	err := row.Scan(&t.ID, &t.Name, &email, &t.Role, &baseHours, &t.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Email = email.String
	if t.BaseCapacityHours, err = decimal.NewFromString(baseHours); err != nil {
		return nil, fmt.Errorf("invalid base capacity %q: %w", baseHours, err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func scanAllocation(row rowScanner) (*capacity.Allocation, error) {
	var (
		a          capacity.Allocation
		percentage string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&a.ID, &a.TeammateID, &a.TeamID, &percentage, &a.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if a.Percentage, err = decimal.NewFromString(percentage); err != nil {
		return nil, fmt.Errorf("invalid allocation percentage %q: %w", percentage, err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}
