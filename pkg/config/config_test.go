package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTactic(t *testing.T) {
	for _, s := range []string{"basic", "decrement", "increment"} {
		tac, err := ParseTactic(s)
		require.NoError(t, err)
		require.Equal(t, Tactic(s), tac)
	}
	_, err := ParseTactic("bisect")
	require.Error(t, err)
}

func TestValidateRejectsZeroPebbles(t *testing.T) {
	c := Default()
	require.Error(t, c.Validate())

	c.MaxPebbles = 2
	require.NoError(t, c.Validate())
}

func TestValidateRejectsZeroRetries(t *testing.T) {
	c := Default()
	c.MaxPebbles = 1
	c.MICRetries = 0
	require.Error(t, c.Validate())
}
