package solver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
)

func backends() map[string]solver.Handle {
	return map[string]solver.Handle{
		"gini":   solver.NewGini(),
		"mock":   solver.NewMock(),
		"prolog": solver.NewProlog(),
	}
}

func TestCheckSatisfiesBaseClauses(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Add("b")
	r.Finish()
	a, b := r.Cur(0), r.Cur(1)

	for name, h := range backends() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.Assert(cube.Clause{a, b}))   // a ∨ b
			require.NoError(t, h.Assert(cube.Clause{a.Not()})) // ¬a, forces b

			sat, err := h.Check(context.Background(), nil)
			require.NoError(t, err)
			require.True(t, sat)

			m, err := h.Model()
			require.NoError(t, err)
			require.False(t, m.Value(a))
			require.True(t, m.Value(b))
		})
	}
}

func TestCheckUnderAssumptionsUnsat(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Finish()
	a := r.Cur(0)

	for name, h := range backends() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.Assert(cube.Clause{a}))

			sat, err := h.Check(context.Background(), cube.New(a.Not()))
			require.NoError(t, err)
			require.False(t, sat)

			core, err := h.UnsatCore(func(registry.Literal) bool { return true }, func(l registry.Literal) registry.Literal { return l })
			require.NoError(t, err)
			require.NotEmpty(t, core)
		})
	}
}

func TestBlockExcludesCube(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Add("b")
	r.Finish()
	a, b := r.Cur(0), r.Cur(1)

	for name, h := range backends() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.Block(cube.New(a, b)))

			sat, err := h.Check(context.Background(), cube.New(a, b))
			require.NoError(t, err)
			require.False(t, sat, "blocked cube must not be reachable again under those exact assumptions")
		})
	}
}

func TestResetWithReplaysBlockedCubes(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Finish()
	a := r.Cur(0)

	for name, h := range backends() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.ResetWith([]cube.Cube{cube.New(a)}))

			sat, err := h.Check(context.Background(), cube.New(a))
			require.NoError(t, err)
			require.False(t, sat)
		})
	}
}

func TestFilterWitnessKeepsOnlyMatchingVars(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Add("b")
	r.Finish()
	a, b := r.Cur(0), r.Cur(1)

	h := solver.NewMock()
	require.NoError(t, h.Assert(cube.Clause{a}))
	require.NoError(t, h.Assert(cube.Clause{b.Not()}))

	sat, err := h.Check(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, sat)

	m, err := h.Model()
	require.NoError(t, err)

	witness := solver.FilterWitness(m, []registry.Literal{a, b}, func(l registry.Literal) bool { return l == a })
	require.Equal(t, cube.New(a), witness)
}

func TestCheckWithClauseIsTemporary(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Finish()
	a := r.Cur(0)

	for name, h := range backends() {
		t.Run(name, func(t *testing.T) {
			sat, err := h.CheckWithClause(context.Background(), cube.Clause{a.Not()}, cube.New(a))
			require.NoError(t, err)
			require.False(t, sat, "the temporary clause must conflict with the assumption")

			sat, err = h.Check(context.Background(), cube.New(a))
			require.NoError(t, err)
			require.True(t, sat, "the temporary clause must not outlive its check")
		})
	}
}
