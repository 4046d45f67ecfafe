package transys

import (
	"fmt"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

// atMostK returns the sequential-counter CNF encoding (Sinz 2005) of
// "at most k of lits are true": none of the solver backends has a native
// atmost operator, so the bound is compiled to clauses up front.
//
// For i in 1..n-1 and j in 1..k, an auxiliary s(i,j) means "at least one of
// lits[0..i) has been counted toward the j-th unit so far". auxName is
// called to name each auxiliary literal, so callers can keep current- and
// next-vector auxiliaries distinguishable in Dump output.
func atMostK(reg *registry.Registry, lits []registry.Literal, k int, auxName func(i, j int) string) []cube.Clause {
	n := len(lits)
	if k < 0 {
		k = 0
	}
	if k >= n {
		return nil
	}
	if k == 0 {
		clauses := make([]cube.Clause, n)
		for i, l := range lits {
			clauses[i] = cube.Clause{l.Not()}
		}
		return clauses
	}
	if k == 1 {
		// Pairwise encoding: no auxiliaries, O(n²) clauses. Cheaper than
		// the counter for the bounds this engine actually starts from.
		var clauses []cube.Clause
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				clauses = append(clauses, cube.Clause{lits[i].Not(), lits[j].Not()})
			}
		}
		return clauses
	}
	if k == n-1 {
		// "Not all of them": a single clause, no auxiliaries.
		clause := make(cube.Clause, n)
		for i, l := range lits {
			clause[i] = l.Not()
		}
		return []cube.Clause{clause}
	}

	s := make([][]registry.Literal, n-1)
	for i := 0; i < n-1; i++ {
		s[i] = make([]registry.Literal, k)
		for j := 0; j < k; j++ {
			s[i][j] = reg.AddAux(auxName(i, j))
		}
	}

	var out []cube.Clause

	// x1 -> s(1,1)
	out = append(out, cube.Clause{lits[0].Not(), s[0][0]})
	// ¬s(1,j) for j=2..k
	for j := 1; j < k; j++ {
		out = append(out, cube.Clause{s[0][j].Not()})
	}

	for i := 1; i < n-1; i++ {
		// xi -> s(i,1)
		out = append(out, cube.Clause{lits[i].Not(), s[i][0]})
		// s(i-1,1) -> s(i,1)
		out = append(out, cube.Clause{s[i-1][0].Not(), s[i][0]})
		for j := 1; j < k; j++ {
			// (xi ∧ s(i-1,j-1)) -> s(i,j)
			out = append(out, cube.Clause{lits[i].Not(), s[i-1][j-1].Not(), s[i][j]})
			// s(i-1,j) -> s(i,j)
			out = append(out, cube.Clause{s[i-1][j].Not(), s[i][j]})
		}
		// ¬(xi ∧ s(i-1,k))
		out = append(out, cube.Clause{lits[i].Not(), s[i-1][k-1].Not()})
	}

	// ¬(xn ∧ s(n-1,k))
	out = append(out, cube.Clause{lits[n-1].Not(), s[n-2][k-1].Not()})

	return out
}

func curAuxName(i, j int) string { return fmt.Sprintf("__cardcur_s%d_%d", i, j) }
func nxtAuxName(i, j int) string { return fmt.Sprintf("__cardnxt_s%d_%d", i, j) }
