package frame

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
	"github.com/pdrpebble/pdrpebble/pkg/transys"
)

// Encoding selects how the Frame Store represents per-level blocking
// clauses in the underlying solver(s).
type Encoding int

const (
	// PerFrame gives every level its own solver, seeded with T ∧ Card and
	// every cube homed at or below that level.
	PerFrame Encoding = iota
	// Delta keeps one shared solver and toggles each cube's visibility
	// with a per-level activation literal.
	Delta
)

// Store is the Frame Store: F_0 (= I, fixed) through F_k (the frontier),
// plus the solver encoding backing satisfiability queries against them.
//
// Checking level i activates every cube homed at a level >= i — F_0 is the
// strongest (sees everything), the frontier the weakest (sees only what
// was just learned there). A cube homed at level L is therefore made
// visible to every check at i <= L: the Delta encoding gets this for free
// by gating the cube on act[L] (Check(i) assumes act[j] for all j >= i,
// which includes L whenever i <= L); PerFrame has to replicate the
// assertion into handles[1..L] since its solvers share nothing.
type Store struct {
	Sys       *transys.System
	Encoding  Encoding
	NewSolver func() solver.Handle

	frames  []*Frame
	handles []solver.Handle // PerFrame: one per level. Delta: handles[0] only.
	act     []registry.Literal

	initH solver.Handle // I only, for intersects-I checks
}

// New constructs a Store at frontier 0 (F_0 = I ∧ T ∧ Card), ready for the
// driver's initiation checks to run against.
func New(sys *transys.System, encoding Encoding, newSolver func() solver.Handle) (*Store, error) {
	s := &Store{Sys: sys, Encoding: encoding, NewSolver: newSolver}

	s.initH = newSolver()
	for _, l := range sys.I {
		if err := s.initH.Assert(cube.Clause{l}); err != nil {
			return nil, err
		}
	}

	if err := s.extendLevel(); err != nil {
		return nil, err
	}
	return s, nil
}

// Frontier returns k, the highest existing frame level.
func (s *Store) Frontier() int { return len(s.frames) - 1 }

func (s *Store) extendLevel() error {
	level := len(s.frames)
	s.frames = append(s.frames, NewFrame(level))

	switch s.Encoding {
	case PerFrame:
		h := s.NewSolver()
		for _, c := range s.Sys.BaseAssertions() {
			if err := h.Assert(c); err != nil {
				return err
			}
		}
		if level == 0 {
			for _, l := range s.Sys.I {
				if err := h.Assert(cube.Clause{l}); err != nil {
					return err
				}
			}
		}
		s.handles = append(s.handles, h)
	case Delta:
		if len(s.handles) == 0 {
			h := s.NewSolver()
			for _, c := range s.Sys.BaseAssertions() {
				if err := h.Assert(c); err != nil {
					return err
				}
			}
			s.handles = append(s.handles, h)
		}
		a := s.Sys.Reg.AddAux(fmt.Sprintf("__act%d", level))
		s.act = append(s.act, a)
		if level == 0 {
			for _, l := range s.Sys.I {
				if err := s.handles[0].Assert(cube.Clause{l, a.Not()}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Extend adds a new, empty frontier level.
func (s *Store) Extend() error { return s.extendLevel() }

func (s *Store) handleAt(level int) solver.Handle {
	if s.Encoding == Delta {
		return s.handles[0]
	}
	return s.handles[level]
}

// assumeAt augments assumptions with the activation literals that bring a
// delta-encoded check into focus at level; a no-op under per-frame.
func (s *Store) assumeAt(level int, assumptions cube.Cube) cube.Cube {
	if s.Encoding != Delta {
		return assumptions
	}
	assume := assumptions.Clone()
	for j := level; j <= s.Frontier(); j++ {
		assume = append(assume, s.act[j])
	}
	return assume
}

// Check runs a satisfiability query at the given frame level.
func (s *Store) Check(ctx context.Context, level int, assumptions cube.Cube) (bool, error) {
	return s.handleAt(level).Check(ctx, s.assumeAt(level, assumptions))
}

// InitCheck runs a satisfiability query against I alone, used for the
// initiation check and for testing whether a generalized core still
// intersects I.
func (s *Store) InitCheck(ctx context.Context, assumptions cube.Cube) (bool, error) {
	return s.initH.Check(ctx, assumptions)
}

// GetTransFromTo reports whether some state in F_level transitions into
// target, returning a witness model if so.
func (s *Store) GetTransFromTo(ctx context.Context, level int, target cube.Cube) (solver.Model, bool, error) {
	sat, err := s.Check(ctx, level, target.Primed())
	if err != nil {
		return nil, false, err
	}
	if !sat {
		return nil, false, nil
	}
	m, err := s.handleAt(level).Model()
	return m, true, err
}

// inductionWitness runs the relative-induction query F_level ∧ ¬c ∧ T ∧ c'.
// The ¬c clause matters: it keeps any witness outside c itself, which is
// what makes generalization's CTI-intersection loop shrink every round.
func (s *Store) inductionWitness(ctx context.Context, c cube.Cube, level int) (solver.Model, bool, error) {
	sat, err := s.handleAt(level).CheckWithClause(ctx, c.Negate(), s.assumeAt(level, c.Primed()))
	if err != nil {
		return nil, false, err
	}
	if !sat {
		return nil, false, nil
	}
	m, err := s.handleAt(level).Model()
	return m, true, err
}

// Inductive reports whether c is inductive relative to F_level:
// F_level ∧ ¬c ∧ T ⊨ ¬c'.
func (s *Store) Inductive(ctx context.Context, c cube.Cube, level int) (bool, error) {
	_, sat, err := s.inductionWitness(ctx, c, level)
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// CounterToInductiveness is Inductive's witness-producing counterpart: if c
// is not inductive relative to F_level, returns the model exhibiting the
// transition.
func (s *Store) CounterToInductiveness(ctx context.Context, c cube.Cube, level int) (solver.Model, bool, error) {
	return s.inductionWitness(ctx, c, level)
}

// UnsatCore returns the unsat core of the last unsat Check at level,
// filtered and mapped (typically to convert primed core literals back to
// current-state atoms).
func (s *Store) UnsatCore(level int, filter func(registry.Literal) bool, mapFn func(registry.Literal) registry.Literal) (cube.Cube, error) {
	return s.handleAt(level).UnsatCore(filter, mapFn)
}

// BlockIn inserts c into F_lvl: silently skipped when an equal or
// stronger cube already covers it — at lvl itself, or homed at any higher
// frame, where it blocks every check lvl participates in anyway — and any
// strictly weaker residents of lvl are dropped first.
func (s *Store) BlockIn(lvl int, c cube.Cube) error {
	for j := lvl; j < len(s.frames); j++ {
		if s.frames[j].Blocked(c) {
			return nil
		}
	}
	s.frames[lvl].RemoveSubsumed(c)
	if err := s.frames[lvl].Block(c); err != nil {
		return err
	}
	switch s.Encoding {
	case PerFrame:
		return s.handles[lvl].Block(c)
	case Delta:
		return s.handles[0].BlockActivated(c, s.act[lvl])
	}
	return nil
}

// RemoveState homes c at level (clamped to the current frontier), making
// it visible to every check at a level <= home. Bookkeeping records c only
// at its home frame; Propagate is what later advances that home forward.
func (s *Store) RemoveState(c cube.Cube, level int) error {
	top := level
	if top > s.Frontier() {
		top = s.Frontier()
	}
	if top < 1 {
		return nil
	}

	if s.Encoding == PerFrame {
		for lvl := 1; lvl < top; lvl++ {
			if err := s.handles[lvl].Block(c); err != nil {
				return err
			}
		}
	}
	return s.BlockIn(top, c)
}

// Propagate pushes every cube from frame i forward to i+1, for i starting
// at from, whenever F_i ∧ T ⊨ ¬cube' (cube remains inductive one level
// further). A cube is homed at exactly one level, so a level left with no
// cubes of its own is indistinguishable from the one above it: F_i =
// F_{i+1}, a fixed point, and the inductive invariant is reported found at
// i. The emptiness test also covers the degenerate proof where T ∧ Card
// alone already rules the goal out and no clause was ever learned.
func (s *Store) Propagate(ctx context.Context, from int) (int, bool, error) {
	if from < 1 {
		from = 1
	}
	for lvl := from; lvl < s.Frontier(); lvl++ {
		cubes := append([]cube.Cube{}, s.frames[lvl].BlockedCubes()...)
		for _, c := range cubes {
			if s.frames[lvl+1].Blocked(c) {
				s.removeHome(lvl, c)
				continue
			}
			sat, err := s.Check(ctx, lvl, c.Primed())
			if err != nil {
				return 0, false, err
			}
			if sat {
				continue
			}
			if err := s.BlockIn(lvl+1, c); err != nil {
				return 0, false, err
			}
			s.removeHome(lvl, c)
		}
		if s.frames[lvl].Empty() {
			return lvl, true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) removeHome(lvl int, c cube.Cube) {
	kept := s.frames[lvl].blocked[:0]
	for _, b := range s.frames[lvl].blocked {
		if !b.Equal(c) {
			kept = append(kept, b)
		}
	}
	s.frames[lvl].blocked = kept
}

// ResetFrames rebuilds every solver from scratch against the transition
// system's current base assertions (T ∧ Card reflecting a new pebble
// bound) while replaying each frame's already-blocked cubes, keeping the
// learned clauses across an Incremental Controller decrement. The handles'
// own Reset is not enough here: it replays the base clauses they were
// first seeded with, which still encode the old bound.
func (s *Store) ResetFrames() error {
	seed := func() (solver.Handle, error) {
		h := s.NewSolver()
		for _, c := range s.Sys.BaseAssertions() {
			if err := h.Assert(c); err != nil {
				return nil, err
			}
		}
		return h, nil
	}

	switch s.Encoding {
	case PerFrame:
		for lvl := range s.handles {
			h, err := seed()
			if err != nil {
				return err
			}
			if lvl == 0 {
				for _, l := range s.Sys.I {
					if err := h.Assert(cube.Clause{l}); err != nil {
						return err
					}
				}
			}
			// A cube homed at L is visible to every level <= L, so each
			// solver replays the cubes of its own level and above.
			for j := lvl; j < len(s.frames); j++ {
				if j < 1 {
					continue
				}
				for _, c := range s.frames[j].BlockedCubes() {
					if err := h.Block(c); err != nil {
						return err
					}
				}
			}
			s.handles[lvl] = h
		}
	case Delta:
		h, err := seed()
		if err != nil {
			return err
		}
		for _, l := range s.Sys.I {
			if err := h.Assert(cube.Clause{l, s.act[0].Not()}); err != nil {
				return err
			}
		}
		for lvl := range s.frames {
			for _, c := range s.frames[lvl].BlockedCubes() {
				if err := h.BlockActivated(c, s.act[lvl]); err != nil {
					return err
				}
			}
		}
		s.handles[0] = h
	}
	return nil
}

// CubesAtOrAbove returns every cube homed at level or higher — the clause
// set a check at that level sees, and the shape an inductive invariant is
// reported in.
func (s *Store) CubesAtOrAbove(level int) []cube.Cube {
	var out []cube.Cube
	for lvl := level; lvl < len(s.frames); lvl++ {
		out = append(out, s.frames[lvl].BlockedCubes()...)
	}
	return out
}

// Frame returns the frame at a level, for read-only inspection (used by
// the PDR driver's obligation handling and by diagnostics).
func (s *Store) Frame(level int) *Frame { return s.frames[level] }

// BlockedString renders every frame's blocked cubes, aggregated across all
// levels.
func (s *Store) BlockedString() string {
	var b strings.Builder
	b.WriteString("Frames\n")
	for _, f := range s.frames {
		b.WriteString(f.String())
	}
	return b.String()
}

// SolversString renders every solver's current assertions.
func (s *Store) SolversString() string {
	var b strings.Builder
	b.WriteString("Solvers\n")
	if s.Encoding == Delta {
		b.WriteString(s.handles[0].Dump())
		return b.String()
	}
	for lvl, h := range s.handles {
		fmt.Fprintf(&b, "-- level %d --\n", lvl)
		b.WriteString(h.Dump())
		b.WriteString("\n")
	}
	return b.String()
}
