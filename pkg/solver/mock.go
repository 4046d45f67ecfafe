package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// Mock is a brute-force reference backend: it tracks every literal it has
// ever seen and, on Check, enumerates every assignment of those literals
// until it finds one that satisfies every asserted clause and assumption.
// It exists purely for tests and is never meant to scale past the handful
// of DAG nodes a unit test exercises.
type Mock struct {
	base    []cube.Clause
	clauses []cube.Clause
	seen    map[registry.Literal]bool // keyed by positive literal
	order   []registry.Literal

	lastModel map[registry.Literal]bool
	lastSat   bool
	lastCore  cube.Cube
}

// NewMock returns an empty Mock handle.
func NewMock() Handle {
	return &Mock{seen: map[registry.Literal]bool{}}
}

func (m *Mock) observe(lits []registry.Literal) {
	for _, l := range lits {
		pos := l
		if pos.Negated() {
			pos = pos.Not()
		}
		if !m.seen[pos] {
			m.seen[pos] = true
			m.order = append(m.order, pos)
		}
	}
}

// Assert implements Handle.
func (m *Mock) Assert(c cube.Clause) error {
	m.base = append(m.base, c)
	m.clauses = append(m.clauses, c)
	m.observe(c)
	return nil
}

// Block implements Handle.
func (m *Mock) Block(c cube.Cube) error {
	clause := c.Negate()
	m.clauses = append(m.clauses, clause)
	m.observe(clause)
	return nil
}

// BlockActivated implements Handle.
func (m *Mock) BlockActivated(c cube.Cube, act registry.Literal) error {
	clause := append(cube.Clause{}, c.Negate()...)
	clause = append(clause, act.Not())
	m.clauses = append(m.clauses, clause)
	m.observe(clause)
	return nil
}

// Check implements Handle by brute-force search. Assumed variables are
// pinned rather than enumerated, so the search space is 2^(free vars).
func (m *Mock) Check(ctx context.Context, assumptions cube.Cube) (bool, error) {
	m.observe(assumptions)

	assumed := map[registry.Literal]bool{}
	conflicting := false
	for _, l := range assumptions {
		pos, want := l, true
		if pos.Negated() {
			pos, want = pos.Not(), false
		}
		if prev, ok := assumed[pos]; ok && prev != want {
			conflicting = true
		}
		assumed[pos] = want
	}

	var free []registry.Literal
	for _, l := range m.order {
		if _, ok := assumed[l]; !ok {
			free = append(free, l)
		}
	}
	if len(free) > 24 {
		return false, &InvariantViolation{Op: "Check", Msg: "mock solver: too many free variables for brute force"}
	}

	if !conflicting {
		for assignment := 0; assignment < (1 << len(free)); assignment++ {
			values := make(map[registry.Literal]bool, len(m.order))
			for pos, want := range assumed {
				values[pos] = want
			}
			for i, l := range free {
				values[l] = assignment&(1<<i) != 0
			}
			ok := true
			for _, c := range m.clauses {
				if !clauseHolds(c, values) {
					ok = false
					break
				}
			}
			if ok {
				m.lastSat = true
				m.lastModel = values
				m.lastCore = nil
				return true, nil
			}
		}
	}

	m.lastSat = false
	m.lastModel = nil
	m.lastCore = assumptions.Clone()
	return false, nil
}

// CheckWithClause implements Handle by appending temp for the duration of
// one Check.
func (m *Mock) CheckWithClause(ctx context.Context, temp cube.Clause, assumptions cube.Cube) (bool, error) {
	m.observe(temp)
	m.clauses = append(m.clauses, temp)
	sat, err := m.Check(ctx, assumptions)
	m.clauses = m.clauses[:len(m.clauses)-1]
	return sat, err
}

func clauseHolds(c cube.Clause, values map[registry.Literal]bool) bool {
	for _, l := range c {
		pos, want := l, true
		if pos.Negated() {
			pos, want = pos.Not(), false
		}
		if values[pos] == want {
			return true
		}
	}
	return false
}

type mockModel struct{ values map[registry.Literal]bool }

func (m *mockModel) Value(lit registry.Literal) bool {
	pos, want := lit, true
	if pos.Negated() {
		pos, want = pos.Not(), false
	}
	return m.values[pos] == want
}

// Model implements Handle.
func (m *Mock) Model() (Model, error) {
	if m.lastModel == nil {
		return nil, &InvariantViolation{Op: "Model", Msg: "called without a preceding sat Check"}
	}
	return &mockModel{values: m.lastModel}, nil
}

// UnsatCore implements Handle. The brute-force backend has no notion of a
// minimal core, so it conservatively returns every assumption that
// survives filter/mapFn — still a sound (if not minimal) unsat core.
func (m *Mock) UnsatCore(filter func(registry.Literal) bool, mapFn func(registry.Literal) registry.Literal) (cube.Cube, error) {
	if m.lastCore == nil && m.lastSat {
		return nil, &InvariantViolation{Op: "UnsatCore", Msg: "called without a preceding unsat Check"}
	}
	var out []registry.Literal
	for _, l := range m.lastCore {
		if filter(l) {
			out = append(out, mapFn(l))
		}
	}
	return cube.New(out...), nil
}

// Reset implements Handle.
func (m *Mock) Reset() error {
	m.clauses = append([]cube.Clause{}, m.base...)
	return nil
}

// ResetWith implements Handle.
func (m *Mock) ResetWith(cubes []cube.Cube) error {
	if err := m.Reset(); err != nil {
		return err
	}
	for _, c := range cubes {
		if err := m.Block(c); err != nil {
			return err
		}
	}
	return nil
}

// Dump implements Handle.
func (m *Mock) Dump() string {
	strs := make([]string, len(m.clauses))
	for i, c := range m.clauses {
		strs[i] = fmt.Sprintf("- %s", c.String())
	}
	sort.Strings(strs)
	return "mock solver clauses:\n" + strings.Join(strs, "\n")
}
