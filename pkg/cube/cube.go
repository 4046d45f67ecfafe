// Package cube implements Cubes and Clauses: sorted conjunctions and
// disjunctions of registry.Literal. The sorted representation is what makes
// Subsumes a linear-time set-inclusion test.
package cube

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// Cube is a conjunction of literals, kept sorted by registry.Literal.ID().
// It represents the set of states that satisfy every literal in it.
type Cube []registry.Literal

// Clause is a disjunction of literals — the negation of a Cube.
type Clause []registry.Literal

// New builds a Cube from literals in any order, sorting and deduplicating
// them.
func New(lits ...registry.Literal) Cube {
	c := append(Cube{}, lits...)
	sortLits(c)
	return dedup(c)
}

func less(a, b registry.Literal) bool {
	if a.ID() != b.ID() {
		return a.ID() < b.ID()
	}
	return !a.Negated() && b.Negated()
}

func sortLits(lits []registry.Literal) {
	sort.Slice(lits, func(i, j int) bool { return less(lits[i], lits[j]) })
}

func dedup(c Cube) Cube {
	if len(c) < 2 {
		return c
	}
	out := c[:1]
	for _, l := range c[1:] {
		if out[len(out)-1] == l {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Clone returns an independent copy of the cube.
func (c Cube) Clone() Cube {
	out := make(Cube, len(c))
	copy(out, c)
	return out
}

// Equal reports element-wise equality of two sorted cubes.
func (c Cube) Equal(other Cube) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Subsumes reports whether a ⊆ b as sets, i.e. a is a (non-strict) subset
// of b's literals. Both must already be sorted (as every Cube is by
// construction). subsumes(a, b) ⟺ as_set(a) ⊆ as_set(b).
func Subsumes(a, b Cube) bool {
	if len(a) > len(b) {
		return false
	}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case less(b[j], a[i]):
			j++
		default:
			return false
		}
	}
	return i == len(a)
}

// Without returns a new cube with the literal at index i removed.
func (c Cube) Without(i int) Cube {
	out := make(Cube, 0, len(c)-1)
	out = append(out, c[:i]...)
	out = append(out, c[i+1:]...)
	return out
}

// Negate turns a Cube into the Clause that is its negation: ¬(l1 ∧ l2 ∧ …)
// = ¬l1 ∨ ¬l2 ∨ ….
func (c Cube) Negate() Clause {
	out := make(Clause, len(c))
	for i, l := range c {
		out[i] = l.Not()
	}
	return out
}

// Primed returns the cube with every literal's current-state atom replaced
// by its next-state counterpart.
func (c Cube) Primed() Cube {
	out := make(Cube, len(c))
	for i, l := range c {
		out[i] = l.Primed()
	}
	sortLits(out)
	return out
}

// Unprimed is the inverse of Primed.
func (c Cube) Unprimed() Cube {
	out := make(Cube, len(c))
	for i, l := range c {
		out[i] = l.Unprimed()
	}
	sortLits(out)
	return out
}

// Intersect returns the literals present in both cubes, preserving sort
// order — used by `down` to shrink a candidate state by a CTI witness.
func (c Cube) Intersect(other Cube) Cube {
	set := make(map[registry.Literal]bool, len(other))
	for _, l := range other {
		set[l] = true
	}
	out := make(Cube, 0, len(c))
	for _, l := range c {
		if set[l] {
			out = append(out, l)
		}
	}
	return out
}

func (c Cube) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return strings.Join(parts, " & ")
}

func (c Clause) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return strings.Join(parts, " | ")
}

// Join renders a sequence of cubes with a separator, padding each element
// to the width of the longest so trace and frame dumps line up.
func Join(cubes []Cube, sep string) string {
	strs := make([]string, len(cubes))
	width := 0
	for i, c := range cubes {
		strs[i] = c.String()
		if len(strs[i]) > width {
			width = len(strs[i])
		}
	}
	for i := range strs {
		strs[i] = fmt.Sprintf("%*s", width, strs[i])
	}
	return strings.Join(strs, sep)
}
