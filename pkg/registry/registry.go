// Package registry implements the Literal Registry: the bijection between
// DAG node names and the pair of boolean atoms (current-state, next-state)
// that the rest of the engine reasons about.
package registry

import "fmt"

// Literal is an opaque handle into a Registry. The zero value is not a
// valid literal; always obtain one through a Registry.
type Literal struct {
	index  int
	primed bool
	neg    bool
}

// ID returns a value that totally and deterministically orders literals:
// current/next atoms of the same node sort adjacently, independent of
// polarity, which is what Cube's sorted representation relies on.
func (l Literal) ID() int {
	id := l.index * 2
	if l.primed {
		id++
	}
	return id
}

// Index returns the dense node index this literal refers to.
func (l Literal) Index() int { return l.index }

// Negated reports whether this is a negative literal (¬atom).
func (l Literal) Negated() bool { return l.neg }

// Not returns the complementary literal.
func (l Literal) Not() Literal {
	return Literal{index: l.index, primed: l.primed, neg: !l.neg}
}

// IsCurrent reports whether this literal is over a current-state atom.
func (l Literal) IsCurrent() bool { return !l.primed }

// IsNext reports whether this literal is over a next-state atom.
func (l Literal) IsNext() bool { return l.primed }

// Primed returns the next-state counterpart of a current-state literal.
// Panics if l is already a next-state literal: that is a contract
// violation, not a runtime outcome a caller should plan around.
func (l Literal) Primed() Literal {
	if l.primed {
		panic("registry: Primed called on a next-state literal")
	}
	return Literal{index: l.index, primed: true, neg: l.neg}
}

// Unprimed returns the current-state counterpart of a next-state literal.
func (l Literal) Unprimed() Literal {
	if !l.primed {
		panic("registry: Unprimed called on a current-state literal")
	}
	return Literal{index: l.index, primed: false, neg: l.neg}
}

func (l Literal) String() string {
	s := ""
	if l.neg {
		s = "!"
	}
	if l.primed {
		return fmt.Sprintf("%s%d'", s, l.index)
	}
	return fmt.Sprintf("%s%d", s, l.index)
}

// Registry is the bijection between DAG node names and literal pairs.
// Construction is insert-then-finish: Add every node name in DAG order,
// then Finish to freeze the dense index space before literals are handed
// out anywhere else in the engine.
type Registry struct {
	names    []string
	index    map[string]int
	finished bool
}

// New creates an empty, unfinished Registry.
func New() *Registry {
	return &Registry{index: map[string]int{}}
}

// Add inserts a DAG node name, assigning it the next dense index. Add must
// not be called after Finish.
func (r *Registry) Add(name string) {
	if r.finished {
		panic("registry: Add called after Finish")
	}
	if _, ok := r.index[name]; ok {
		return
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
}

// AddAux appends an auxiliary current-state-only literal (used by
// cardinality encodings and delta-encoding activation literals) after the
// registry has been finished, continuing the same dense id space.
func (r *Registry) AddAux(name string) Literal {
	if !r.finished {
		panic("registry: AddAux called before Finish")
	}
	idx := len(r.names)
	r.names = append(r.names, name)
	r.index[name] = idx
	return Literal{index: idx}
}

// Finish freezes the mapping; no further Add calls are permitted.
func (r *Registry) Finish() { r.finished = true }

// Len returns the number of registered names (including aux literals).
func (r *Registry) Len() int { return len(r.names) }

// Name returns the DAG node name at a dense index.
func (r *Registry) Name(index int) string { return r.names[index] }

// IndexOf returns the dense index of a node name, and whether it exists.
func (r *Registry) IndexOf(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Cur returns the current-state literal for a dense index.
func (r *Registry) Cur(index int) Literal { return Literal{index: index} }

// Nxt returns the next-state literal for a dense index.
func (r *Registry) Nxt(index int) Literal { return Literal{index: index, primed: true} }

// CurVec returns the current-state literal for every DAG node, in index
// order, not including aux literals added after Finish.
func (r *Registry) CurVec(nodeCount int) []Literal {
	out := make([]Literal, nodeCount)
	for i := range out {
		out[i] = r.Cur(i)
	}
	return out
}

// NxtVec returns the next-state literal for every DAG node, in index order.
func (r *Registry) NxtVec(nodeCount int) []Literal {
	out := make([]Literal, nodeCount)
	for i := range out {
		out[i] = r.Nxt(i)
	}
	return out
}

// AtomIsCurrent reports whether lit (or its negation) is a current-state
// atom.
func AtomIsCurrent(lit Literal) bool { return lit.IsCurrent() }
