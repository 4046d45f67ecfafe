package frame_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
	"github.com/pdrpebble/pdrpebble/pkg/dag"
	"github.com/pdrpebble/pdrpebble/pkg/frame"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
	"github.com/pdrpebble/pdrpebble/pkg/transys"
)

func TestFrameBlockedRecognizesSubsumingCube(t *testing.T) {
	reg := registry.New()
	reg.Add("a")
	reg.Add("b")
	reg.Finish()
	a, b := reg.Cur(0), reg.Cur(1)

	f := frame.NewFrame(1)
	require.NoError(t, f.Block(cube.New(a)))
	require.True(t, f.Blocked(cube.New(a, b)), "a weaker blocked cube must subsume a ∧ b")
	require.False(t, f.Blocked(cube.New(b)))
}

func TestFrameDiffFindsUnpropagatedCubes(t *testing.T) {
	reg := registry.New()
	reg.Add("a")
	reg.Add("b")
	reg.Finish()
	a, b := reg.Cur(0), reg.Cur(1)

	lo := frame.NewFrame(1)
	hi := frame.NewFrame(2)
	require.NoError(t, lo.Block(cube.New(a)))
	require.NoError(t, lo.Block(cube.New(b)))
	require.NoError(t, hi.Block(cube.New(a)))

	diff := lo.Diff(hi)
	require.Len(t, diff, 1)
	require.True(t, diff[0].Equal(cube.New(b)))
}

func diamondSystem(t *testing.T, maxPebbles int) (*registry.Registry, *transys.System) {
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
	return reg, transys.New(reg, g, maxPebbles)
}

func TestStoreRemoveStateAndCheck(t *testing.T) {
	for _, enc := range []frame.Encoding{frame.PerFrame, frame.Delta} {
		reg, sys := diamondSystem(t, 4)
		st, err := frame.New(sys, enc, solver.NewMock)
		require.NoError(t, err)
		require.NoError(t, st.Extend())

		dIdx, _ := reg.IndexOf("d")
		dCube := cube.New(reg.Cur(dIdx))

		require.NoError(t, st.RemoveState(dCube, 1))

		sat, err := st.Check(context.Background(), 1, dCube)
		require.NoError(t, err)
		require.False(t, sat, "blocked cube must be unreachable as a direct assumption")
	}
}

func TestStorePropagateOnSingleFrameSucceeds(t *testing.T) {
	reg, sys := diamondSystem(t, 4)
	st, err := frame.New(sys, frame.PerFrame, solver.NewMock)
	require.NoError(t, err)
	require.NoError(t, st.Extend())

	aIdx, _ := reg.IndexOf("a")
	aCube := cube.New(reg.Cur(aIdx).Not())
	require.NoError(t, st.RemoveState(aCube, 1))

	_, _, err = st.Propagate(context.Background(), 1)
	require.NoError(t, err)
}
