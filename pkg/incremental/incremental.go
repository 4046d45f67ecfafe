// Package incremental drives the pebbling budget up or down across
// repeated PDR runs: IncrementStrategy searches for the smallest budget a
// strategy exists at all, Decrement then tries to shrink a found strategy
// further, optionally reusing the learned frames.
package incremental

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/pdrpebble/pdrpebble/pkg/frame"
	"github.com/pdrpebble/pdrpebble/pkg/pdr"
	"github.com/pdrpebble/pdrpebble/pkg/pdrlog"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
	"github.com/pdrpebble/pdrpebble/pkg/transys"
)

// Outcome is Decrement's verdict on the tighter bound.
type Outcome int

const (
	// OutcomeContinue means the bound was lowered and the caller should
	// run the driver again (Run after a rebuild, Resume after a reuse).
	OutcomeContinue Outcome = iota
	// OutcomeProven means the reused frames already furnish an inductive
	// invariant for the tighter bound; no further search is needed.
	OutcomeProven
	// OutcomeInfeasible means the tighter bound cannot even hold the
	// output nodes, so no strategy can exist at it or below.
	OutcomeInfeasible
)

// Controller re-runs PDR over the same transition system at different
// pebble budgets. Each budget change replaces the Driver; the Store is
// rebuilt from scratch, except on a reusing Decrement, which keeps its
// frames and rebuilds only its solvers.
type Controller struct {
	Sys          *transys.System
	Encoding     frame.Encoding
	NewSolver    func() solver.Handle
	MICRetries   int
	Log          *pdrlog.Logger
	MaxPebbleCap int // hard ceiling IncrementStrategy will not exceed

	// Seed, when set, seeds each driver's obligation tie-breaking.
	Seed *uint64

	Store  *frame.Store
	Driver *pdr.Driver

	// ShortestStrategy is the smallest pebble budget a strategy is known
	// to fit in so far. Zero until a run finds a counterexample.
	ShortestStrategy int
}

// NewController builds a Controller with a fresh Store and Driver at Sys's
// current budget.
func NewController(sys *transys.System, encoding frame.Encoding, newSolver func() solver.Handle, micRetries, maxPebbleCap int, log *pdrlog.Logger) (*Controller, error) {
	c := &Controller{
		Sys:          sys,
		Encoding:     encoding,
		NewSolver:    newSolver,
		MICRetries:   micRetries,
		Log:          log,
		MaxPebbleCap: maxPebbleCap,
	}
	if err := c.rebuild(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) newDriver() *pdr.Driver {
	d := pdr.NewDriver(c.Sys, c.Store, c.MICRetries, c.Log)
	if c.Seed != nil {
		d.Rand = rand.New(rand.NewSource(int64(*c.Seed)))
	}
	return d
}

// Reset discards every learned frame and rebuilds the Store and Driver at
// the transition system's current bound.
func (c *Controller) Reset() error { return c.rebuild() }

func (c *Controller) rebuild() error {
	st, err := frame.New(c.Sys, c.Encoding, c.NewSolver)
	if err != nil {
		return err
	}
	c.Store = st
	c.Driver = c.newDriver()
	return nil
}

// IncrementStrategy repeatedly raises the pebble budget by one and reruns
// PDR from scratch until a strategy is found (the driver reports the
// property violated) or MaxPebbleCap is exceeded. An explicit cap is what
// bounds the loop: raising the budget past the node count can never help,
// since no marking uses more pebbles than there are nodes.
func (c *Controller) IncrementStrategy(ctx context.Context) (bool, error) {
	for {
		ok, err := c.Driver.Run(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			c.ShortestStrategy = c.Sys.MaxPebbles()
			return true, nil
		}

		newPebbles := c.Sys.MaxPebbles() + 1
		if newPebbles > c.MaxPebbleCap {
			return false, nil
		}
		c.Sys.SetMaxPebbles(newPebbles)
		if err := c.rebuild(); err != nil {
			return false, err
		}
	}
}

// Decrement tightens the budget to one pebble below the cheapest strategy
// seen. When reuse is false the Store is rebuilt from scratch and the
// caller runs the driver afresh. When reuse is true every blocked cube is
// kept (only the cardinality assertions change — all of them stay valid,
// since fewer pebbles can only shrink the reachable states), the frames
// are re-propagated from just below the old frontier, and the caller only
// needs to Resume when that does not already close the proof.
func (c *Controller) Decrement(ctx context.Context, reuse bool) (Outcome, error) {
	maxPebbles := c.Sys.MaxPebbles()
	newPebbles := c.ShortestStrategy - 1
	if newPebbles <= 0 || newPebbles >= maxPebbles {
		return OutcomeContinue, &solver.InvariantViolation{
			Op:  "Decrement",
			Msg: fmt.Sprintf("no strategy smaller than %d pebbles to try", maxPebbles),
		}
	}

	c.Sys.SetMaxPebbles(newPebbles)
	if newPebbles < c.Sys.FinalPebbles() {
		return OutcomeInfeasible, nil
	}

	if !reuse {
		if err := c.rebuild(); err != nil {
			return OutcomeContinue, err
		}
		return OutcomeContinue, nil
	}

	frontier := c.Store.Frontier()
	if err := c.Store.ResetFrames(); err != nil {
		return OutcomeContinue, err
	}
	c.Driver = c.newDriver()

	from := frontier - 1
	if from < 1 {
		from = 1
	}
	level, found, err := c.Store.Propagate(ctx, from)
	if err != nil {
		return OutcomeContinue, err
	}
	if found {
		c.Driver.InvariantLevel = level
		return OutcomeProven, nil
	}
	return OutcomeContinue, nil
}
