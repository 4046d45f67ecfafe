package pdr_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdrpebble/pdrpebble/pkg/dag"
	"github.com/pdrpebble/pdrpebble/pkg/frame"
	"github.com/pdrpebble/pdrpebble/pkg/pdr"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
	"github.com/pdrpebble/pdrpebble/pkg/transys"
)

func diamond(t *testing.T, maxPebbles int) *transys.System {
	t.Helper()
	g, err := dag.Parse(strings.NewReader(`
input a
node b
node c
output d
depends b : a
depends c : a
depends d : b c
`))
	require.NoError(t, err)

	reg := registry.New()
	for _, n := range g.Nodes() {
		reg.Add(n)
	}
	reg.Finish()
	return transys.New(reg, g, maxPebbles)
}

func newDriver(t *testing.T, sys *transys.System, enc frame.Encoding) *pdr.Driver {
	t.Helper()
	st, err := frame.New(sys, enc, solver.NewMock)
	require.NoError(t, err)
	return pdr.NewDriver(sys, st, 3, nil)
}

func TestRunFindsInvariantWhenBudgetTooSmall(t *testing.T) {
	for _, enc := range []frame.Encoding{frame.PerFrame, frame.Delta} {
		sys := diamond(t, 1) // one pebble at a time can never hold b and c together
		d := newDriver(t, sys, enc)

		ok, err := d.Run(context.Background())
		require.NoError(t, err)
		require.True(t, ok, "pebbling the diamond's output must be infeasible under a budget of 1")
		require.Nil(t, d.Bad)
	}
}

func TestRunFindsCounterexampleWhenBudgetSufficient(t *testing.T) {
	for _, enc := range []frame.Encoding{frame.PerFrame, frame.Delta} {
		sys := diamond(t, 4) // enough to hold a, b, c and then d simultaneously
		d := newDriver(t, sys, enc)

		ok, err := d.Run(context.Background())
		require.NoError(t, err)
		require.False(t, ok, "pebbling the diamond's output must be feasible under a budget of 4")
		require.NotNil(t, d.Bad)

		trace := d.Bad.Trace()
		require.NotEmpty(t, trace)
	}
}

func system(t *testing.T, src string, maxPebbles int) *transys.System {
	t.Helper()
	g, err := dag.Parse(strings.NewReader(src))
	require.NoError(t, err)

	reg := registry.New()
	for _, n := range g.Nodes() {
		reg.Add(n)
	}
	reg.Finish()
	return transys.New(reg, g, maxPebbles)
}

func TestSingleOutputPebbledInOneStep(t *testing.T) {
	sys := system(t, "output a\n", 1)
	d := newDriver(t, sys, frame.PerFrame)

	ok, err := d.Run(context.Background())
	require.NoError(t, err)
	require.False(t, ok, "a childless output is pebbled in one move")
	require.NotNil(t, d.Bad)
}

func TestChainProvenWithOnePebble(t *testing.T) {
	// b depends on a, so placing b needs a held across the move: two
	// pebbles on the board at once. One pebble must be proven infeasible,
	// and the one lemma this takes is inductive at F_1 already, so the
	// very first propagation closes the proof there.
	sys := system(t, "input a\noutput b\ndepends b : a\n", 1)
	d := newDriver(t, sys, frame.PerFrame)

	ok, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, d.InvariantLevel)
	require.NotEmpty(t, d.Store.CubesAtOrAbove(d.InvariantLevel))
}

func TestTwoOutputsOnePebbleInductiveWithoutLemmas(t *testing.T) {
	// The goal marking needs both outputs pebbled at once, which Card(1)
	// already forbids: the property is inductive with no learned clauses,
	// and the first iteration must terminate with the invariant at F_1.
	sys := system(t, "output a\noutput b\n", 1)
	d := newDriver(t, sys, frame.PerFrame)

	ok, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, d.InvariantLevel)
	require.Empty(t, d.Store.CubesAtOrAbove(d.InvariantLevel))
}

func TestChainRefutedWithTwoPebbles(t *testing.T) {
	sys := system(t, "input a\noutput b\ndepends b : a\n", 2)
	d := newDriver(t, sys, frame.PerFrame)

	ok, err := d.Run(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.NotNil(t, d.Bad)
}

// Two identical runs must agree on everything observable: the frame dumps
// and the counterexample chain are both functions of the input alone.
func TestRunsAreDeterministic(t *testing.T) {
	trace := func() (string, string) {
		sys := diamond(t, 4)
		d := newDriver(t, sys, frame.PerFrame)
		ok, err := d.Run(context.Background())
		require.NoError(t, err)
		require.False(t, ok)

		var cubes []string
		for _, st := range d.Bad.Trace() {
			cubes = append(cubes, st.Cube.String())
		}
		return strings.Join(cubes, ";"), d.Store.BlockedString()
	}

	t1, f1 := trace()
	t2, f2 := trace()
	require.Equal(t, t1, t2)
	require.Equal(t, f1, f2)
}

func TestBadChainRespectsPebbleBound(t *testing.T) {
	sys := system(t, "input a\noutput b\ndepends b : a\n", 2)
	d := newDriver(t, sys, frame.PerFrame)

	ok, err := d.Run(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	chain := d.Bad.Trace()
	require.NotEmpty(t, chain)

	// Every marking along the counterexample was extracted from a model
	// constrained by Card(2), so none may hold more than two pebbles.
	for _, st := range chain {
		count := 0
		for _, l := range st.Cube {
			if !l.Negated() {
				count++
			}
		}
		require.LessOrEqual(t, count, 2)
	}
}

func c17(t *testing.T) *dag.Graph {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "examples", "c17.dag"))
	require.NoError(t, err)
	defer f.Close()
	g, err := dag.Parse(f)
	require.NoError(t, err)
	return g
}

// solveC17 runs one query against the c17 benchmark with the real SAT
// backend — eleven nodes plus cardinality counters are past what the mock
// solver's brute force is meant for.
func solveC17(t *testing.T, pebbles int) (proven bool, trace string) {
	t.Helper()
	g := c17(t)
	reg := registry.New()
	for _, n := range g.Nodes() {
		reg.Add(n)
	}
	reg.Finish()
	sys := transys.New(reg, g, pebbles)

	st, err := frame.New(sys, frame.PerFrame, solver.NewGini)
	require.NoError(t, err)
	d := pdr.NewDriver(sys, st, 3, nil)

	ok, err := d.Run(context.Background())
	require.NoError(t, err)
	if ok {
		return true, ""
	}
	var cubes []string
	for _, s := range d.Bad.Trace() {
		cubes = append(cubes, s.Cube.String())
	}
	return false, strings.Join(cubes, ";")
}

// The smallest budget any c17 strategy fits in is a fixed property of the
// graph: scanning upward must land on the same boundary, with the same
// counterexample, every time, with the property proven on one side of it
// and refuted on the other.
func TestC17BoundaryIsDeterministic(t *testing.T) {
	g := c17(t)

	scan := func() (int, string) {
		for n := 2; n <= len(g.Nodes()); n++ {
			proven, trace := solveC17(t, n)
			if !proven {
				return n, trace
			}
		}
		t.Fatal("no budget admits a c17 strategy")
		return 0, ""
	}

	boundary, trace := scan()
	again, traceAgain := scan()
	require.Equal(t, boundary, again)
	require.Equal(t, trace, traceAgain)

	for _, tc := range []struct {
		name       string
		pebbles    int
		wantProven bool
	}{
		{"below boundary", boundary - 1, true},
		{"at boundary", boundary, false},
		{"all nodes", len(g.Nodes()), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			proven, _ := solveC17(t, tc.pebbles)
			require.Equal(t, tc.wantProven, proven)
		})
	}
}
