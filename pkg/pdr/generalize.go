package pdr

import (
	"context"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
)

// highestInductiveFrame returns the highest level in [max(1, min), max] at
// which c is still inductive relative to that frame and every frame below
// it in that range, one level below the range when c is not inductive even
// at its bottom, or -1 when c intersects the initial states — such a state
// can never be blocked anywhere.
func (d *Driver) highestInductiveFrame(ctx context.Context, c cube.Cube, min, max int) (int, error) {
	if min <= 0 {
		sat, err := d.Store.InitCheck(ctx, c)
		if err != nil {
			return 0, err
		}
		if sat {
			return -1, nil
		}
	}

	highest := max
	start := min
	if start < 1 {
		start = 1
	}
	for i := start; i <= max; i++ {
		ind, err := d.Store.Inductive(ctx, c, i)
		if err != nil {
			return 0, err
		}
		if !ind {
			highest = i - 1
			break
		}
	}
	return highest, nil
}

// highestInductiveFrameWithCore additionally extracts the unsat core that
// witnessed inductiveness at the returned level, reducing c to only the
// literals the solver actually needed — unless that reduced core still
// intersects I, or c turns out not to be inductive at the returned level
// 0, in which cases the original cube is kept.
func (d *Driver) highestInductiveFrameWithCore(ctx context.Context, c cube.Cube, min, max int) (int, cube.Cube, error) {
	result, err := d.highestInductiveFrame(ctx, c, min, max)
	if err != nil {
		return 0, nil, err
	}
	if result < 0 || result < min {
		return result, c.Clone(), nil
	}

	// Re-establish the unsat query at the adopted level: the search above
	// may have last probed one level higher, where the check was sat, and
	// a core is only available off an unsat check. Level 0 is never probed
	// by the search; when c is not inductive relative to F_0 there is no
	// core, and the original cube is kept.
	ind, err := d.Store.Inductive(ctx, c, result)
	if err != nil {
		return 0, nil, err
	}
	if !ind {
		return result, c.Clone(), nil
	}

	core, err := d.Store.UnsatCore(result,
		func(l registry.Literal) bool { return l.IsNext() },
		func(l registry.Literal) registry.Literal { return l.Unprimed() })
	if err != nil {
		return 0, nil, err
	}

	sat, err := d.Store.InitCheck(ctx, core)
	if err != nil {
		return 0, nil, err
	}
	if sat {
		core = c.Clone()
	}
	return result, core, nil
}

// generalize reduces a cube known inductive at level via MIC.
func (d *Driver) generalize(ctx context.Context, c cube.Cube, level int) (cube.Cube, error) {
	return d.mic(ctx, c, level)
}

// mic greedily drops one literal at a time, keeping the drop whenever the
// resulting cube still downward-converges to inductive, and gives up
// after MICRetries consecutive failed drops.
func (d *Driver) mic(ctx context.Context, state cube.Cube, level int) (cube.Cube, error) {
	cur := state.Clone()
	attempts := 0
	for i := 0; i < len(cur) && attempts < d.MICRetries; {
		candidate := cur.Without(i)
		reduced, ok, err := d.down(ctx, candidate, level)
		if err != nil {
			return nil, err
		}
		if ok {
			cur = reduced
			attempts = 0
		} else {
			i++
			attempts++
		}
	}
	return cur, nil
}

// down decides whether state remains inductive relative to level after
// dropping a literal, shrinking state to the CTI's current-state
// intersection each time a counterexample to inductiveness is found. A
// candidate that ever intersects the initial states is rejected outright.
func (d *Driver) down(ctx context.Context, state cube.Cube, level int) (cube.Cube, bool, error) {
	for {
		sat, err := d.Store.InitCheck(ctx, state)
		if err != nil {
			return state, false, err
		}
		if sat {
			return state, false, nil
		}

		witness, ok, err := d.Store.CounterToInductiveness(ctx, state, level)
		if err != nil {
			return state, false, err
		}
		if !ok {
			return state, true, nil
		}

		full := solver.FilterWitness(witness, d.curVars(), registry.AtomIsCurrent)
		state = full.Intersect(state)
	}
}
