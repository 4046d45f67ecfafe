package pdr

// Obligation is a proof obligation: State.Cube must be shown unreachable
// at Level. Depth counts how many predecessor hops derived it, used to
// order obligations at the same level.
type Obligation struct {
	Level int
	State *State
	Depth int

	// seq breaks (Level, Depth) ties: an insertion counter by default, or
	// a draw from the driver's seeded source when one is configured.
	seq uint64
}

// obligationQueue is a container/heap min-heap ordered by (Level, Depth)
// ascending, read lowest-level-first every round so a state's predecessors
// are discharged before the state itself is revisited.
type obligationQueue []*Obligation

func (q obligationQueue) Len() int { return len(q) }

func (q obligationQueue) Less(i, j int) bool {
	if q[i].Level != q[j].Level {
		return q[i].Level < q[j].Level
	}
	if q[i].Depth != q[j].Depth {
		return q[i].Depth < q[j].Depth
	}
	return q[i].seq < q[j].seq
}

func (q obligationQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *obligationQueue) Push(x any) {
	*q = append(*q, x.(*Obligation))
}

func (q *obligationQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
