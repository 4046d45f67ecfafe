package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFinishDenseIndices(t *testing.T) {
	r := New()
	r.Add("a")
	r.Add("b")
	r.Add("c")
	r.Finish()

	require.Equal(t, 3, r.Len())
	i, ok := r.IndexOf("b")
	require.True(t, ok)
	require.Equal(t, 1, i)
}

func TestPrimedUnprimedRoundTrip(t *testing.T) {
	r := New()
	r.Add("n")
	r.Finish()

	cur := r.Cur(0)
	nxt := cur.Primed()
	require.True(t, nxt.IsNext())
	require.Equal(t, cur, nxt.Unprimed())
}

func TestLiteralIDOrdersCurrentBeforeNext(t *testing.T) {
	r := New()
	r.Add("a")
	r.Add("b")
	r.Finish()

	require.Less(t, r.Cur(0).ID(), r.Nxt(0).ID())
	require.Less(t, r.Nxt(0).ID(), r.Cur(1).ID())
}

func TestAddAuxExtendsDenseSpaceAfterFinish(t *testing.T) {
	r := New()
	r.Add("a")
	r.Finish()

	aux := r.AddAux("act0")
	require.Equal(t, 1, aux.Index())
	require.Equal(t, 2, r.Len())
}

func TestNotTogglesPolarityOnly(t *testing.T) {
	r := New()
	r.Add("a")
	r.Finish()

	lit := r.Cur(0)
	require.False(t, lit.Negated())
	require.True(t, lit.Not().Negated())
	require.Equal(t, lit, lit.Not().Not())
}
