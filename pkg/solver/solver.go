// Package solver defines the Solver Handle capability the engine checks
// satisfiability through, with three interchangeable backends: Gini
// (default, a real incremental SAT solver), Prolog (an alternate backend
// demonstrating the interface's swappability), and Mock (a brute-force
// reference backend for tests).
package solver

import (
	"context"
	"fmt"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// InvariantViolation is a fatal contract break: an Unknown result from the
// backend, an unsat-core request after a Sat check, or similar. Callers
// treat it as unrecoverable, never as an ordinary outcome.
type InvariantViolation struct {
	Op  string
	Msg string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("solver: invariant violation in %s: %s", e.Op, e.Msg)
}

// Model is a satisfying assignment returned by Check after a Sat result.
type Model interface {
	// Value reports the truth value the model assigns to lit's underlying
	// atom, already accounting for lit's own polarity: Value(lit) == true
	// means the model satisfies lit.
	Value(lit registry.Literal) bool
}

// Handle is the abstract solver capability the PDR core consumes. Base
// assertions (T ∧ Card) are loaded once via Assert before any frame-level
// Block calls.
type Handle interface {
	// Assert adds a persistent clause.
	Assert(c cube.Clause) error

	// Block asserts the clause ¬cube (cube.Negate()).
	Block(c cube.Cube) error

	// BlockActivated asserts ¬cube ∨ ¬act, used by the delta encoding to
	// toggle a frame's clauses by level.
	BlockActivated(c cube.Cube, act registry.Literal) error

	// Check runs a satisfiability query under the given assumptions.
	Check(ctx context.Context, assumptions cube.Cube) (sat bool, err error)

	// CheckWithClause runs Check with temp asserted for this call only.
	// Relative-induction queries (F ∧ ¬c ∧ T ∧ c') need it: ¬c is a
	// disjunction, which per-literal assumptions cannot express.
	CheckWithClause(ctx context.Context, temp cube.Clause, assumptions cube.Cube) (sat bool, err error)

	// Model returns the last satisfying assignment. Valid only
	// immediately after a Check that returned sat == true.
	Model() (Model, error)

	// UnsatCore returns the subset of the last Check's assumptions that
	// the backend found responsible for unsatisfiability, each passed
	// through mapFn (used to convert primed atoms back to current-state
	// atoms). Valid only immediately after a Check that returned
	// sat == false. filter selects which literals of the raw core to
	// keep before mapping.
	UnsatCore(filter func(registry.Literal) bool, mapFn func(registry.Literal) registry.Literal) (cube.Cube, error)

	// Reset rebuilds the solver with only its base assertions.
	Reset() error

	// ResetWith resets and re-blocks every cube in cubes.
	ResetWith(cubes []cube.Cube) error

	// Dump renders the solver's current assertions deterministically, for
	// diagnostics.
	Dump() string
}

// FilterWitness returns the sorted cube of every literal in vars (or its
// negation) for which pred holds, reading truth values out of m. CTIs and
// predecessors are both extracted this way, so it lives here instead of
// being duplicated per backend.
func FilterWitness(m Model, vars []registry.Literal, pred func(registry.Literal) bool) cube.Cube {
	var lits []registry.Literal
	for _, v := range vars {
		if !pred(v) {
			continue
		}
		if m.Value(v) {
			lits = append(lits, v)
		} else {
			lits = append(lits, v.Not())
		}
	}
	return cube.New(lits...)
}
