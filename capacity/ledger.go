/*
ledger.go - The authoritative set of teammate->team percentage allocations

PURPOSE:
  The Allocation Ledger is the single writer of allocation records and the
  enforcer of the core invariant: for any teammate, active allocation
  percentages sum to at most 100. Everything else in the engine is derived
  from the ledger's state.

CRITICAL INVARIANTS:
  1. sum(active percentages) <= 100 per teammate, at all times
  2. One active allocation per (teammate, team) pair
  3. Every mutation runs inside the teammate's mutual-exclusion scope
  4. A failed capacity check aborts with no partial write

VALIDATION ERRORS:
  All deterministic, returned to the caller for local display, never
  retried. CapacityExceededError carries the teammate's actual remaining
  percentage so the client can offer a corrected value in one round trip.

TIE-BREAKING:
  Allocations have no inherent priority. Remaining capacity weighs all
  active allocations equally regardless of creation order.

SEE ALSO:
  - resolver.go: The per-teammate mutual-exclusion scope
  - store.go: AllocationStore, the ledger's backing storage
*/
package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger owns allocation records exclusively.
type Ledger struct {
	store     AllocationStore
	directory DirectoryStore
	resolver  *conflictResolver

	// now is swappable for tests.
	now func() time.Time
}

func NewLedger(store AllocationStore, directory DirectoryStore) *Ledger {
	return &Ledger{
		store:     store,
		directory: directory,
		resolver:  newConflictResolver(),
		now:       time.Now,
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Assign creates a new allocation and returns the teammate's new remaining
// percentage.
//
// Fails with:
//   - InvalidPercentageError when percentage is outside (0, 100]
//   - ErrTeammateInactive when the teammate is deactivated
//   - DuplicateAllocationError when the pair already has an active allocation
//   - CapacityExceededError when the budget would be broken; the error
//     carries the actual remaining percentage
func (l *Ledger) Assign(ctx context.Context, teammateID TeammateID, teamID TeamID, percentage decimal.Decimal) (decimal.Decimal, error) {
	if err := validatePercentage(percentage); err != nil {
		return decimal.Zero, err
	}

	teammate, err := l.directory.GetTeammate(ctx, teammateID)
	if err != nil {
		return decimal.Zero, err
	}
	if !teammate.Active {
		return decimal.Zero, fmt.Errorf("assign %s to %s: %w", teammateID, teamID, ErrTeammateInactive)
	}
	if _, err := l.directory.GetTeam(ctx, teamID); err != nil {
		return decimal.Zero, err
	}

	unlock := l.resolver.lock(teammateID)
	defer unlock()

	existing, err := l.store.GetAllocation(ctx, teammateID, teamID)
	if err != nil {
		return decimal.Zero, err
	}
	if existing != nil {
		return decimal.Zero, &DuplicateAllocationError{TeammateID: teammateID, TeamID: teamID}
	}

	remaining, err := l.remainingLocked(ctx, teammateID, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if percentage.GreaterThan(remaining) {
		return decimal.Zero, &CapacityExceededError{
			TeammateID: teammateID,
			Requested:  percentage,
			Remaining:  remaining,
		}
	}

	now := l.now().UTC()
	alloc := Allocation{
		ID:         uuid.NewString(),
		TeammateID: teammateID,
		TeamID:     teamID,
		Percentage: percentage,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.store.PutAllocation(ctx, alloc); err != nil {
		return decimal.Zero, fmt.Errorf("commit allocation: %w", err)
	}

	return remaining.Sub(percentage), nil
}

// Update changes an existing allocation's percentage and returns the
// teammate's new remaining percentage. The capacity check excludes the
// allocation being updated from the "other" sum.
//
// Updating to the current value is a no-op, not an error: UpdatedAt is left
// untouched and no capacity recheck runs.
func (l *Ledger) Update(ctx context.Context, teammateID TeammateID, teamID TeamID, newPercentage decimal.Decimal) (decimal.Decimal, error) {
	if err := validatePercentage(newPercentage); err != nil {
		return decimal.Zero, err
	}

	unlock := l.resolver.lock(teammateID)
	defer unlock()

	existing, err := l.store.GetAllocation(ctx, teammateID, teamID)
	if err != nil {
		return decimal.Zero, err
	}
	if existing == nil {
		return decimal.Zero, fmt.Errorf("update %s on %s: %w", teammateID, teamID, ErrAllocationNotFound)
	}

	remainingOthers, err := l.remainingLocked(ctx, teammateID, &teamID)
	if err != nil {
		return decimal.Zero, err
	}

	if existing.Percentage.Equal(newPercentage) {
		// No-op.
		return remainingOthers.Sub(newPercentage), nil
	}

	if newPercentage.GreaterThan(remainingOthers) {
		return decimal.Zero, &CapacityExceededError{
			TeammateID: teammateID,
			Requested:  newPercentage,
			Remaining:  remainingOthers,
		}
	}

	updated := *existing
	updated.Percentage = newPercentage
	updated.UpdatedAt = l.now().UTC()
	if err := l.store.PutAllocation(ctx, updated); err != nil {
		return decimal.Zero, fmt.Errorf("commit allocation update: %w", err)
	}

	return remainingOthers.Sub(newPercentage), nil
}

// Remove deletes the pair's allocation. Idempotent: removing an absent
// allocation is not an error.
func (l *Ledger) Remove(ctx context.Context, teammateID TeammateID, teamID TeamID) error {
	unlock := l.resolver.lock(teammateID)
	defer unlock()

	return l.store.DeleteAllocation(ctx, teammateID, teamID)
}

// =============================================================================
// QUERIES
// =============================================================================

// RemainingPercentage returns 100 minus the teammate's active allocation
// sum. Never negative by invariant.
func (l *Ledger) RemainingPercentage(ctx context.Context, teammateID TeammateID) (decimal.Decimal, error) {
	unlock := l.resolver.lock(teammateID)
	defer unlock()
	return l.remainingLocked(ctx, teammateID, nil)
}

// AllocationsForTeam returns a team's active allocations.
func (l *Ledger) AllocationsForTeam(ctx context.Context, teamID TeamID) ([]Allocation, error) {
	return l.store.AllocationsByTeam(ctx, teamID)
}

// AllocationsForTeammate returns a teammate's active allocations.
func (l *Ledger) AllocationsForTeammate(ctx context.Context, teammateID TeammateID) ([]Allocation, error) {
	return l.store.AllocationsByTeammate(ctx, teammateID)
}

// remainingLocked computes remaining percentage. Must be called inside the
// teammate's scope. excludeTeam drops one team's allocation from the sum
// (used by Update to exclude the allocation being replaced).
func (l *Ledger) remainingLocked(ctx context.Context, teammateID TeammateID, excludeTeam *TeamID) (decimal.Decimal, error) {
	allocations, err := l.store.AllocationsByTeammate(ctx, teammateID)
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, a := range allocations {
		if excludeTeam != nil && a.TeamID == *excludeTeam {
			continue
		}
		sum = sum.Add(a.Percentage)
	}
	return clampZero(Hundred.Sub(sum)), nil
}

// =============================================================================
// BULK ASSIGNMENT
// =============================================================================

// BatchAssignment is one item of a bulk "add teammates to team" request.
type BatchAssignment struct {
	TeammateID TeammateID
	Percentage decimal.Decimal
}

// BatchResult reports one item's outcome. A batch is NOT atomic: each item
// is validated and committed independently, in request order.
type BatchResult struct {
	TeammateID TeammateID
	Remaining  decimal.Decimal
	Err        error
}

// AssignBatch runs the assignments in order. A later item may fail
// CapacityExceeded even though earlier items succeeded; callers must treat
// the batch as a sequence of independent attempts and report partial success.
func (l *Ledger) AssignBatch(ctx context.Context, teamID TeamID, items []BatchAssignment) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		remaining, err := l.Assign(ctx, item.TeammateID, teamID, item.Percentage)
		results = append(results, BatchResult{
			TeammateID: item.TeammateID,
			Remaining:  remaining,
			Err:        err,
		})
	}
	return results
}

// =============================================================================
// VALIDATION
// =============================================================================

func validatePercentage(p decimal.Decimal) error {
	if !p.IsPositive() || p.GreaterThan(Hundred) {
		return &InvalidPercentageError{Value: p}
	}
	return nil
}
