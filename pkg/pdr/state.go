package pdr

import "github.com/pdrpebble/pdrpebble/pkg/cube"

// State is one link in a counterexample trace: a cube plus a back-pointer
// to its successor, the state it transitions into on the path to the bad
// property. The last link of the chain (the first CTI found, one step away
// from the goal) has Next == nil; the chain's head is the counterexample
// root the driver surfaces as Bad.
type State struct {
	Cube cube.Cube
	Next *State
}

// Trace walks the successor chain from s, returning states in
// chronological order (s first, the goal-adjacent CTI last).
func (s *State) Trace() []*State {
	var out []*State
	for cur := s; cur != nil; cur = cur.Next {
		out = append(out, cur)
	}
	return out
}
