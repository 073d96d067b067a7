package capacity

import "context"

// =============================================================================
// ENGINE - Composition root for the capacity components
// =============================================================================

// Engine wires the calculator, ledger, assessor, and aggregator over one
// Store. It is the surface external collaborators (the dashboard API,
// reporting) talk to.
type Engine struct {
	Store      Store
	Ledger     *Ledger
	Calculator *Calculator
	Assessor   *Assessor
	Aggregator *Aggregator
}

// Option customizes engine construction.
type Option func(*Engine)

// WithRoleDemand plugs in the work-item collaborator's role-requirement
// signal. Without it the SKILL_GAP rule is skipped.
func WithRoleDemand(demand RoleDemand) Option {
	return func(e *Engine) {
		e.Assessor.demand = demand
	}
}

// WithLeaveWindowDays overrides the forward-looking window for
// UPCOMING_LEAVES findings.
func WithLeaveWindowDays(days int) Option {
	return func(e *Engine) {
		e.Assessor.LeaveWindowDays = days
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	calculator := NewCalculator(store, store, store)
	ledger := NewLedger(store, store)
	assessor := NewAssessor(store, ledger, calculator, store, nil)
	aggregator := NewAggregator(store, ledger, calculator, assessor)

	engine := &Engine{
		Store:      store,
		Ledger:     ledger,
		Calculator: calculator,
		Assessor:   assessor,
		Aggregator: aggregator,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// DeactivateTeammate soft-deactivates a teammate. Teammates are never
// deleted while allocations reference them; deactivation excludes them
// from every computation instead.
func (e *Engine) DeactivateTeammate(ctx context.Context, id TeammateID) error {
	teammate, err := e.Store.GetTeammate(ctx, id)
	if err != nil {
		return err
	}
	teammate.Active = false
	return e.Store.SaveTeammate(ctx, *teammate)
}
