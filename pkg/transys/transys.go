// Package transys builds the immutable transition-system bundle
// (I, T, P, ¬P, Card(N)) the PDR driver model-checks against.
package transys

import (
	"fmt"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/dag"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// System is the transition-system bundle handed to the Solver Handle as
// base assertions (T ∧ Card) plus the I/P/¬P cubes the PDR driver reasons
// about directly. Everything but Card is fixed at construction; Card is
// rebuilt in place by SetMaxPebbles as the Incremental Controller tightens
// or loosens the bound.
type System struct {
	Reg *registry.Registry
	G   *dag.Graph

	// I is the initial cube: every current-state atom false (no pebbles
	// placed yet).
	I cube.Cube

	// T is the transition relation, one set of four clauses per
	// (node, child) pair: node i can only flip between now and next if
	// every child of i is pebbled both now and next.
	T []cube.Clause

	// Goal is ¬P, the pebbling goal cube: every output node pebbled,
	// every other node unpebbled.
	Goal cube.Cube

	// Property is P, the negation of the goal as a clause: some output
	// unpebbled or some non-output pebbled.
	Property cube.Clause

	maxPebbles   int
	finalPebbles int
	card         []cube.Clause
}

// New builds the immutable parts of a System (I, T, Goal, Property) over a
// finished Registry whose node indices were assigned in g.Nodes() order,
// then calls SetMaxPebbles(maxPebbles) to build the initial Card.
func New(reg *registry.Registry, g *dag.Graph, maxPebbles int) *System {
	s := &System{
		Reg:          reg,
		G:            g,
		finalPebbles: len(g.Outputs()),
	}
	s.buildInitial()
	s.buildTransition()
	s.buildProperty()
	s.SetMaxPebbles(maxPebbles)
	return s
}

func (s *System) buildInitial() {
	nodes := s.G.Nodes()
	lits := make([]registry.Literal, len(nodes))
	for i := range nodes {
		lits[i] = s.Reg.Cur(i).Not()
	}
	s.I = cube.New(lits...)
}

// buildTransition mirrors Model::load_pebble_transition: for node i and
// each child c, four clauses enforce that i can only change (now vs next)
// if c is pebbled both now and next — equivalently, whenever c is
// unpebbled in either state, i is forced equal to i'.
func (s *System) buildTransition() {
	nodes := s.G.Nodes()
	var clauses []cube.Clause
	for i, name := range nodes {
		ni := s.Reg.Cur(i)
		nip := s.Reg.Nxt(i)
		for _, child := range s.G.Children(name) {
			ci, ok := s.Reg.IndexOf(child)
			if !ok {
				panic(fmt.Sprintf("transys: unknown child %q", child))
			}
			nc := s.Reg.Cur(ci)
			ncp := s.Reg.Nxt(ci)

			clauses = append(clauses,
				cube.Clause{ni, nip.Not(), nc},
				cube.Clause{ni.Not(), nip, nc},
				cube.Clause{ni, nip.Not(), ncp},
				cube.Clause{ni.Not(), nip, ncp},
			)
		}
	}
	s.T = clauses
}

// buildProperty mirrors Model::load_property: Goal (¬P) is the cube "every
// output pebbled, every other node unpebbled"; Property (P) is the clause
// negating it, "some output unpebbled or some non-output pebbled".
func (s *System) buildProperty() {
	nodes := s.G.Nodes()
	goal := make([]registry.Literal, len(nodes))
	prop := make([]registry.Literal, len(nodes))
	for i, name := range nodes {
		cur := s.Reg.Cur(i)
		if s.G.IsOutput(name) {
			goal[i] = cur
			prop[i] = cur.Not()
		} else {
			goal[i] = cur.Not()
			prop[i] = cur
		}
	}
	s.Goal = cube.New(goal...)
	s.Property = cube.Clause(prop)
}

// MaxPebbles returns the pebble bound N the current Card enforces.
func (s *System) MaxPebbles() int { return s.maxPebbles }

// FinalPebbles returns |outputs(G)|, the pebble count the goal state
// itself requires.
func (s *System) FinalPebbles() int { return s.finalPebbles }

// SetMaxPebbles rebuilds only Card(N) = atmost(cur_vec, N) ∧ atmost(nxt_vec, N).
// N < FinalPebbles() is a valid, if trivially infeasible, bound: Card alone
// already conflicts with Goal, and the Incremental Controller is expected
// to detect and report that instead of calling into the driver.
func (s *System) SetMaxPebbles(n int) {
	s.maxPebbles = n
	nodes := s.G.Nodes()
	curVec := s.Reg.CurVec(len(nodes))
	nxtVec := s.Reg.NxtVec(len(nodes))

	var card []cube.Clause
	card = append(card, atMostK(s.Reg, curVec, n, curAuxName)...)
	card = append(card, atMostK(s.Reg, nxtVec, n, nxtAuxName)...)
	s.card = card
}

// Card returns the current Card(N) clauses.
func (s *System) Card() []cube.Clause { return s.card }

// BaseAssertions returns T ∧ Card(N), the clauses every Solver Handle in
// every frame loads via Assert before any cube is ever blocked.
func (s *System) BaseAssertions() []cube.Clause {
	out := make([]cube.Clause, 0, len(s.T)+len(s.card))
	out = append(out, s.T...)
	out = append(out, s.card...)
	return out
}
