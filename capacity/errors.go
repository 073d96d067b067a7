/*
errors.go - Centralized error types for the capacity engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every validation failure is deterministic: the same request against the
  same ledger state fails the same way, so none of these are retried.

ERROR CATEGORIES:
  1. Validation errors - Percentage range, duplicate pairs, capacity budget
  2. Lookup errors - Missing teammates, teams, allocations
  3. Data-quality notes - Non-fatal input gaps (missing base capacity)

USAGE:
  Callers classify with errors.Is or the helpers below:

    _, err := ledger.Assign(ctx, tm, team, pct)
    var exceeded *capacity.CapacityExceededError
    if errors.As(err, &exceeded) {
        suggest(exceeded.Remaining) // actionable number, no second round trip
    }

SEE ALSO:
  - ledger.go: Produces the validation errors
  - api/handlers.go: Maps these to HTTP statuses
*/
package capacity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPercentage is returned when an allocation percentage is
	// outside (0, 100].
	ErrInvalidPercentage = errors.New("invalid allocation percentage")

	// ErrDuplicateAllocation is returned when assign is called for a
	// (teammate, team) pair that already has an active allocation.
	// Callers must use update instead.
	ErrDuplicateAllocation = errors.New("allocation already exists")

	// ErrCapacityExceeded is returned when a mutation would push a
	// teammate's active allocation sum above 100%.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrAllocationNotFound is returned when update targets a pair with no
	// active allocation.
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrTeammateNotFound is returned when a referenced teammate doesn't exist.
	ErrTeammateNotFound = errors.New("teammate not found")

	// ErrTeamNotFound is returned when a referenced team doesn't exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrTeammateInactive is returned when assigning to a deactivated teammate.
	ErrTeammateInactive = errors.New("teammate is deactivated")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrDataQuality marks non-fatal input gaps. The engine computes a
	// defaulted result and surfaces the gap as a warning, never this error
	// directly; it exists for callers that want to classify warnings.
	ErrDataQuality = errors.New("data quality issue")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the actionable number
// =============================================================================

// CapacityExceededError reports how much of the teammate's budget is actually
// left so the caller can suggest a corrected value without a second round trip.
type CapacityExceededError struct {
	TeammateID TeammateID
	Requested  decimal.Decimal
	Remaining  decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded for %s: requested %s%%, only %s%% remaining",
		e.TeammateID, e.Requested.String(), e.Remaining.String())
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// InvalidPercentageError reports the out-of-range value.
type InvalidPercentageError struct {
	Value decimal.Decimal
}

func (e *InvalidPercentageError) Error() string {
	return fmt.Sprintf("invalid allocation percentage %s: must be in (0, 100]", e.Value.String())
}

func (e *InvalidPercentageError) Unwrap() error { return ErrInvalidPercentage }

// DuplicateAllocationError identifies the conflicting pair.
type DuplicateAllocationError struct {
	TeammateID TeammateID
	TeamID     TeamID
}

func (e *DuplicateAllocationError) Error() string {
	return fmt.Sprintf("allocation already exists for teammate %s on team %s: use update",
		e.TeammateID, e.TeamID)
}

func (e *DuplicateAllocationError) Unwrap() error { return ErrDuplicateAllocation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrDuplicateAllocation) ||
		errors.Is(err, ErrTeammateInactive) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAllocationNotFound) ||
		errors.Is(err, ErrTeammateNotFound) ||
		errors.Is(err, ErrTeamNotFound)
}

// IsConflict returns true for duplicate-pair conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAllocation)
}
