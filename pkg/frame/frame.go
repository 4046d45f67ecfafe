// Package frame implements the Frame Store: the per-level blocked-cube
// bookkeeping and the solver encoding (per-frame or delta) that backs it.
package frame

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
)

// Frame holds the cubes blocked at a single level, kept sorted so Equals
// and Diff can be implemented as a merge instead of a membership scan.
type Frame struct {
	Level   int
	blocked []cube.Cube
}

// NewFrame returns an empty frame at the given level.
func NewFrame(level int) *Frame { return &Frame{Level: level} }

func cubeLess(a, b cube.Cube) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i].ID() < b[i].ID() || (a[i].ID() == b[i].ID() && !a[i].Negated())
		}
	}
	return len(a) < len(b)
}

func (f *Frame) insertSorted(c cube.Cube) {
	i := sort.Search(len(f.blocked), func(i int) bool { return !cubeLess(f.blocked[i], c) })
	f.blocked = append(f.blocked, cube.Cube{})
	copy(f.blocked[i+1:], f.blocked[i:])
	f.blocked[i] = c
}

// Blocked reports whether c, or a cube at least as strong, is already
// blocked at this level.
func (f *Frame) Blocked(c cube.Cube) bool {
	for _, b := range f.blocked {
		if cube.Subsumes(b, c) {
			return true
		}
	}
	return false
}

// RemoveSubsumed drops every blocked cube that c subsumes (c is weaker or
// equal, so it alone already blocks everything that cube blocked) and
// returns how many were removed.
func (f *Frame) RemoveSubsumed(c cube.Cube) int {
	before := len(f.blocked)
	kept := f.blocked[:0]
	for _, b := range f.blocked {
		if !cube.Subsumes(c, b) {
			kept = append(kept, b)
		}
	}
	f.blocked = kept
	return before - len(f.blocked)
}

// Block records c as blocked at this level. It returns an error if c is
// already present; callers are expected to have checked Blocked first.
func (f *Frame) Block(c cube.Cube) error {
	for _, b := range f.blocked {
		if b.Equal(c) {
			return fmt.Errorf("frame: cube already blocked at level %d: %s", f.Level, c)
		}
	}
	f.insertSorted(c)
	return nil
}

// BlockedCubes returns every cube blocked at this level, in sorted order.
func (f *Frame) BlockedCubes() []cube.Cube { return f.blocked }

// Empty reports whether no cube is blocked at this level.
func (f *Frame) Empty() bool { return len(f.blocked) == 0 }

// Equals compares two frames' blocked-cube sets assuming both are sorted.
func (f *Frame) Equals(other *Frame) bool {
	if len(f.blocked) != len(other.blocked) {
		return false
	}
	for i := range f.blocked {
		if !f.blocked[i].Equal(other.blocked[i]) {
			return false
		}
	}
	return true
}

// Diff returns the cubes in f that are not in other, via a sorted merge.
func (f *Frame) Diff(other *Frame) []cube.Cube {
	var out []cube.Cube
	i, j := 0, 0
	for i < len(f.blocked) {
		if j >= len(other.blocked) || cubeLess(f.blocked[i], other.blocked[j]) {
			out = append(out, f.blocked[i])
			i++
		} else if cubeLess(other.blocked[j], f.blocked[i]) {
			j++
		} else {
			i++
			j++
		}
	}
	return out
}

func (f *Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "blocked cubes level %d\n", f.Level)
	for _, c := range f.blocked {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return b.String()
}
