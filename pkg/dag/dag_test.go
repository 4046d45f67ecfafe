package dag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDiamond(t *testing.T) {
	src := `
# diamond DAG, d is the output
input a
node b
node c
output d
depends b : a
depends c : a
depends d : b c
`
	g, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b", "c", "d"}, g.Nodes())
	require.Equal(t, []string{"a"}, g.Inputs())
	require.Equal(t, []string{"d"}, g.Outputs())
	require.ElementsMatch(t, []string{"b", "c"}, g.Children("d"))
	require.True(t, g.IsOutput("d"))
	require.False(t, g.IsOutput("a"))
}

func TestParseUnknownChildFails(t *testing.T) {
	_, err := Parse(strings.NewReader("output d\ndepends d : x\n"))
	require.Error(t, err)
}

func TestParseUnknownDirectiveFails(t *testing.T) {
	_, err := Parse(strings.NewReader("frobnicate d\n"))
	require.Error(t, err)
}

func TestSingleNodeChain(t *testing.T) {
	g, err := Parse(strings.NewReader("output a\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, g.Nodes())
	require.Empty(t, g.Children("a"))
}
