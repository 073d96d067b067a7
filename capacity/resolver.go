/*
resolver.go - Per-teammate mutual exclusion for ledger mutations

PURPOSE:
  Serializes concurrent assign/update/remove calls against the same teammate
  so capacity checks observe a consistent snapshot. Two simultaneous
  assignments for one teammate cannot jointly overcommit: the second waits,
  then validates against the first's committed state.

MODEL:
  One mutex per teammate, created lazily and held for exactly one
  validate-then-write step. Hold time is bounded, so callers block without a
  starvation hazard. Mutations for distinct teammates never contend, and no
  cross-teammate ordering is guaranteed or required.

SEE ALSO:
  - ledger.go: Acquires the scope around every mutation
*/
package capacity

import "sync"

// conflictResolver hands out one lock per teammate.
type conflictResolver struct {
	mu    sync.Mutex
	locks map[TeammateID]*sync.Mutex
}

func newConflictResolver() *conflictResolver {
	return &conflictResolver{locks: make(map[TeammateID]*sync.Mutex)}
}

// lock acquires the teammate's scope and returns the unlock function.
func (r *conflictResolver) lock(id TeammateID) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
