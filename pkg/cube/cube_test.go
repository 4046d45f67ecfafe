package cube

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdrpebble/pdrpebble/pkg/registry"
)

func setup(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.Add("a")
	r.Add("b")
	r.Add("c")
	r.Finish()
	return r
}

func TestSubsumesMatchesSetInclusion(t *testing.T) {
	r := setup(t)
	a, b, c := r.Cur(0), r.Cur(1), r.Cur(2)

	small := New(a, b)
	large := New(a, b, c)
	disjoint := New(a, c.Not())

	require.True(t, Subsumes(small, large))
	require.False(t, Subsumes(large, small))
	require.True(t, Subsumes(small, small))
	require.False(t, Subsumes(small, disjoint))
}

func TestNegateFlipsEveryLiteral(t *testing.T) {
	r := setup(t)
	c := New(r.Cur(0), r.Cur(1).Not())

	clause := c.Negate()
	require.Len(t, clause, 2)
	require.True(t, clause[0].Negated())
	require.False(t, clause[1].Negated())
}

func TestPrimedUnprimedRoundTrips(t *testing.T) {
	r := setup(t)
	c := New(r.Cur(0), r.Cur(1))

	require.True(t, c.Primed().Equal(New(r.Nxt(0), r.Nxt(1))))
	require.True(t, c.Primed().Unprimed().Equal(c))
}

func TestIntersectKeepsCommonLiteralsOnly(t *testing.T) {
	r := setup(t)
	a := New(r.Cur(0), r.Cur(1), r.Cur(2))
	b := New(r.Cur(1), r.Cur(2).Not())

	require.True(t, a.Intersect(b).Equal(New(r.Cur(1))))
}

func TestNewDedupesAndSorts(t *testing.T) {
	r := setup(t)
	c := New(r.Cur(1), r.Cur(0), r.Cur(1))
	require.True(t, c.Equal(New(r.Cur(0), r.Cur(1))))
}
