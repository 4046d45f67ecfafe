// Package pdr implements the PDR driver: initiation, the frame iteration
// loop, and the obligation scheduler that blocks counterexamples to
// induction.
package pdr

import (
	"container/heap"
	"context"
	"math/rand"
	"time"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/frame"
	"github.com/pdrpebble/pdrpebble/pkg/pdrlog"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
	"github.com/pdrpebble/pdrpebble/pkg/transys"
)

// Driver runs PDR over a Frame Store built from a transition system. A
// Driver is single-use per Store generation: build a fresh one whenever the
// Store is rebuilt or reset under a new pebble bound.
type Driver struct {
	Sys        *transys.System
	Store      *frame.Store
	MICRetries int
	Log        *pdrlog.Logger

	// Rand, when set, randomizes the order obligations with equal
	// (level, depth) are popped in. Left nil, ties break by insertion
	// order. Either way the order is fully determined by (input, seed).
	Rand *rand.Rand

	// InvariantLevel is the frame index the inductive invariant was found
	// at, valid after a run that reported the property proven.
	InvariantLevel int

	// Bad is the root of the counterexample trace, set when a run reports
	// the property violated.
	Bad *State

	k   int
	seq uint64
}

// NewDriver constructs a Driver. log may be nil, in which case logging is
// a no-op.
func NewDriver(sys *transys.System, store *frame.Store, micRetries int, log *pdrlog.Logger) *Driver {
	if log == nil {
		log = pdrlog.Nop()
	}
	return &Driver{Sys: sys, Store: store, MICRetries: micRetries, Log: log}
}

func (d *Driver) curVars() []registry.Literal {
	return d.Sys.Reg.CurVec(len(d.Sys.G.Nodes()))
}

func (d *Driver) nextSeq() uint64 {
	if d.Rand != nil {
		return uint64(d.Rand.Int63())
	}
	d.seq++
	return d.seq
}

// Run executes Init followed by Iterate, returning true if the property
// holds (an inductive invariant was found), false if a counterexample was
// found (retrievable via Bad.Trace()).
func (d *Driver) Run(ctx context.Context) (bool, error) {
	ok, err := d.Init(ctx)
	if err != nil || !ok {
		return false, err
	}
	return d.Iterate(ctx)
}

// Resume skips initiation and iterates from the Store's existing frontier,
// for continuing on frames kept across an incremental reset. Falls back to
// a full Run when the Store has no frames beyond F_0 yet.
func (d *Driver) Resume(ctx context.Context) (bool, error) {
	if d.Store.Frontier() < 1 {
		return d.Run(ctx)
	}
	d.k = d.Store.Frontier()
	return d.Iterate(ctx)
}

// Init checks I ⊭ ¬P and I ∧ T ⊭ ¬P' before any frame iteration begins.
// Either check failing installs Bad with the trivial counterexample and
// reports initiation failed.
func (d *Driver) Init(ctx context.Context) (bool, error) {
	sat, err := d.Store.InitCheck(ctx, d.Sys.Goal)
	if err != nil {
		return false, err
	}
	if sat {
		d.Bad = &State{Cube: d.Sys.I}
		return false, nil
	}

	witness, ok, err := d.Store.GetTransFromTo(ctx, 0, d.Sys.Goal)
	if err != nil {
		return false, err
	}
	if ok {
		cti := solver.FilterWitness(witness, d.curVars(), registry.AtomIsCurrent)
		d.Bad = &State{Cube: cti}
		return false, nil
	}

	if err := d.Store.Extend(); err != nil {
		return false, err
	}
	d.k = 1
	return true, nil
}

// Iterate runs the main frame loop: exhaust every CTI reachable from the
// frontier, extend, propagate, and repeat until propagation finds a fixed
// point (an inductive invariant) or a CTI cannot be blocked (Bad is set).
func (d *Driver) Iterate(ctx context.Context) (bool, error) {
	for {
		d.Log.Iteration(d.k)

		for {
			if err := ctx.Err(); err != nil {
				return false, err
			}

			witness, ok, err := d.Store.GetTransFromTo(ctx, d.k, d.Sys.Goal)
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}

			ctiCurrent := solver.FilterWitness(witness, d.curVars(), registry.AtomIsCurrent)
			d.Log.CTI(d.k, ctiCurrent)

			n, core, err := d.highestInductiveFrameWithCore(ctx, ctiCurrent, d.k-1, d.k)
			if err != nil {
				return false, err
			}
			if n < 0 {
				d.Bad = &State{Cube: ctiCurrent}
				return false, nil
			}

			smaller, err := d.generalize(ctx, core, n)
			if err != nil {
				return false, err
			}
			if err := d.Store.RemoveState(smaller, n+1); err != nil {
				return false, err
			}

			ok2, err := d.block(ctx, ctiCurrent, n+1, d.k)
			if err != nil {
				return false, err
			}
			if !ok2 {
				return false, nil
			}
		}

		if err := d.Store.Extend(); err != nil {
			return false, err
		}

		start := time.Now()
		level, found, err := d.Store.Propagate(ctx, 1)
		d.Log.Propagation(d.k, time.Since(start))
		if err != nil {
			return false, err
		}

		d.k++
		if found {
			d.InvariantLevel = level
			return true, nil
		}
	}
}

// block drains the obligation queue seeded by a frontier CTI: every
// obligation is either shown to have a real predecessor (pushed further
// back as a new obligation, or reported as Bad if it reaches the initial
// states) or found inductive (generalized and pushed forward toward the
// frontier).
func (d *Driver) block(ctx context.Context, cti cube.Cube, n, level int) (bool, error) {
	q := &obligationQueue{}
	heap.Init(q)
	if n <= level {
		heap.Push(q, &Obligation{Level: n, State: &State{Cube: cti}, Depth: 0, seq: d.nextSeq()})
	}

	for q.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		top := heap.Pop(q).(*Obligation)
		d.Log.TopObligation(q.Len(), top.Level, top.State.Cube)
		start := time.Now()

		witness, ok, err := d.Store.CounterToInductiveness(ctx, top.State.Cube, top.Level)
		if err != nil {
			return false, err
		}

		if ok {
			predCube := solver.FilterWitness(witness, d.curVars(), registry.AtomIsCurrent)
			pred := &State{Cube: predCube, Next: top.State}
			d.Log.Pred(pred.Cube)

			m, core, err := d.highestInductiveFrameWithCore(ctx, pred.Cube, top.Level-1, level)
			if err != nil {
				return false, err
			}
			if m < 0 {
				d.Bad = pred
				return false, nil
			}

			smaller, err := d.generalize(ctx, core, m)
			if err != nil {
				return false, err
			}
			if err := d.Store.RemoveState(smaller, m+1); err != nil {
				return false, err
			}
			if m+1 <= level {
				d.Log.StatePush(m+1, pred.Cube)
				heap.Push(q, &Obligation{Level: m + 1, State: pred, Depth: top.Depth + 1, seq: d.nextSeq()})
			}
			// The popped obligation has not been discharged; its state only
			// gained a blocked predecessor. Requeue it unchanged.
			heap.Push(q, &Obligation{Level: top.Level, State: top.State, Depth: top.Depth, seq: d.nextSeq()})
			d.Log.Obligation("pred", level, time.Since(start))
		} else {
			d.Log.Finish(top.State.Cube)

			m, core, err := d.highestInductiveFrameWithCore(ctx, top.State.Cube, top.Level+1, level)
			if err != nil {
				return false, err
			}
			if m < 0 {
				d.Bad = top.State
				return false, nil
			}

			smaller, err := d.generalize(ctx, core, m)
			if err != nil {
				return false, err
			}
			if err := d.Store.RemoveState(smaller, m+1); err != nil {
				return false, err
			}
			if m+1 <= level {
				d.Log.StatePush(m+1, top.State.Cube)
				heap.Push(q, &Obligation{Level: m + 1, State: top.State, Depth: top.Depth, seq: d.nextSeq()})
			}
			d.Log.Obligation("finish", level, time.Since(start))
		}
	}

	return true, nil
}
