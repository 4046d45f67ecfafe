package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	giniapi "github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// Gini is the default Solver Handle backend: an incremental CDCL SAT
// solver (github.com/go-air/gini). Base assertions (T ∧ Card) are loaded
// through Assert before any frame starts blocking cubes; Reset/ResetWith
// replay them into a fresh solver instance.
type Gini struct {
	g    *giniapi.Gini
	vars map[registry.Literal]z.Lit

	base       []cube.Clause
	lastResult bool
	lastModel  *giniModel
	lastCore   []z.Lit
}

// NewGini constructs a Gini-backed Handle with no base assertions loaded
// yet; call Assert for every clause of T ∧ Card before using Check.
func NewGini() Handle {
	return &Gini{
		g:    giniapi.New(),
		vars: map[registry.Literal]z.Lit{},
	}
}

func (s *Gini) lit(l registry.Literal) z.Lit {
	key := l
	neg := l.Negated()
	if neg {
		key = l.Not()
	}
	zl, ok := s.vars[key]
	if !ok {
		zl = s.g.Lit()
		s.vars[key] = zl
	}
	if neg {
		return zl.Not()
	}
	return zl
}

func (s *Gini) addClause(lits []registry.Literal) {
	for _, l := range lits {
		s.g.Add(s.lit(l))
	}
	s.g.Add(z.LitNull)
}

// Assert implements Handle.
func (s *Gini) Assert(c cube.Clause) error {
	s.base = append(s.base, c)
	s.addClause(c)
	return nil
}

// Block implements Handle.
func (s *Gini) Block(c cube.Cube) error {
	s.addClause(c.Negate())
	return nil
}

// BlockActivated implements Handle.
func (s *Gini) BlockActivated(c cube.Cube, act registry.Literal) error {
	clause := append(cube.Clause{}, c.Negate()...)
	clause = append(clause, act.Not())
	s.addClause(clause)
	return nil
}

// Check implements Handle.
func (s *Gini) Check(ctx context.Context, assumptions cube.Cube) (bool, error) {
	assumed := make([]z.Lit, len(assumptions))
	for i, l := range assumptions {
		assumed[i] = s.lit(l)
	}
	return s.solve(assumed)
}

// CheckWithClause implements Handle. The temporary clause is guarded by a
// fresh activation variable assumed true for this call only; afterwards
// the variable is free and the clause is vacuous.
func (s *Gini) CheckWithClause(ctx context.Context, temp cube.Clause, assumptions cube.Cube) (bool, error) {
	act := s.g.Lit()
	for _, l := range temp {
		s.g.Add(s.lit(l))
	}
	s.g.Add(act.Not())
	s.g.Add(z.LitNull)

	assumed := make([]z.Lit, 0, len(assumptions)+1)
	for _, l := range assumptions {
		assumed = append(assumed, s.lit(l))
	}
	assumed = append(assumed, act)
	return s.solve(assumed)
}

func (s *Gini) solve(assumed []z.Lit) (bool, error) {
	s.g.Assume(assumed...)

	switch s.g.Solve() {
	case 1:
		s.lastResult = true
		s.lastModel = &giniModel{g: s, solved: true}
		s.lastCore = nil
		return true, nil
	case -1:
		s.lastResult = false
		s.lastModel = nil
		s.lastCore = s.g.Why(nil)
		return false, nil
	default:
		return false, &InvariantViolation{Op: "Check", Msg: "backend returned Unknown"}
	}
}

// Model implements Handle.
func (s *Gini) Model() (Model, error) {
	if s.lastModel == nil {
		return nil, &InvariantViolation{Op: "Model", Msg: "called without a preceding sat Check"}
	}
	return s.lastModel, nil
}

// UnsatCore implements Handle.
func (s *Gini) UnsatCore(filter func(registry.Literal) bool, mapFn func(registry.Literal) registry.Literal) (cube.Cube, error) {
	if s.lastCore == nil && s.lastResult {
		return nil, &InvariantViolation{Op: "UnsatCore", Msg: "called without a preceding unsat Check"}
	}

	byZ := make(map[z.Lit]registry.Literal, len(s.vars))
	for rl, zl := range s.vars {
		byZ[zl] = rl
		byZ[zl.Not()] = rl.Not()
	}

	var out []registry.Literal
	for _, zl := range s.lastCore {
		rl, ok := byZ[zl]
		if !ok {
			continue
		}
		if !filter(rl) {
			continue
		}
		out = append(out, mapFn(rl))
	}
	return cube.New(out...), nil
}

// Reset implements Handle.
func (s *Gini) Reset() error {
	s.g = giniapi.New()
	s.vars = map[registry.Literal]z.Lit{}
	base := s.base
	s.base = nil
	for _, c := range base {
		if err := s.Assert(c); err != nil {
			return err
		}
	}
	return nil
}

// ResetWith implements Handle.
func (s *Gini) ResetWith(cubes []cube.Cube) error {
	if err := s.Reset(); err != nil {
		return err
	}
	for _, c := range cubes {
		if err := s.Block(c); err != nil {
			return err
		}
	}
	return nil
}

// Dump implements Handle.
func (s *Gini) Dump() string {
	names := make([]string, 0, len(s.vars))
	index := map[string]registry.Literal{}
	for rl, zl := range s.vars {
		name := fmt.Sprintf("v%d%s=%s", rl.Index(), primeMark(rl), zl.String())
		names = append(names, name)
		index[name] = rl
	}
	sort.Strings(names)
	return "gini solver vars:\n" + strings.Join(names, "\n")
}

func primeMark(l registry.Literal) string {
	if l.IsNext() {
		return "'"
	}
	return ""
}

type giniModel struct {
	g      *Gini
	solved bool
}

func (m *giniModel) Value(lit registry.Literal) bool {
	return m.g.g.Value(m.g.lit(lit))
}
