package testenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariables_Add(t *testing.T) {
	var v Variables
	require.NoError(t, v.Add(Var("A", "1"), Var("B", "2")))
	assert.Equal(t, Variables{"A": "1", "B": "2"}, v)

	err := v.Add(Var("C", "3"), Var("A", "x"))
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, Variables{"A": "1", "B": "2"}, v, "failed Add must not change anything")

	require.ErrorIs(t, v.Add(Var("D", "1"), Var("D", "2")), ErrDuplicateKey)
	require.ErrorIs(t, v.Add(Var("", "1")), ErrInvalidArgument)
	require.ErrorIs(t, v.Add(Var("A=B", "1")), ErrInvalidArgument)
	assert.Len(t, v, 2)
}

func TestVariables_SortedAndClone(t *testing.T) {
	v := Variables{"b": "2", "a": "1"}
	assert.Equal(t, []Variable{{"a", "1"}, {"b", "2"}}, v.Sorted())

	c := v.Clone()
	c["a"] = "changed"
	assert.Equal(t, "1", v["a"])

	var empty Variables
	assert.NotNil(t, empty.Clone())
}

func TestEffectiveEnv(t *testing.T) {
	shared := Variables{"TZ": "UTC", "MODE": "shared"}
	own := []Variable{Var("MODE", "own"), Var("APP", "web")}

	assert.Equal(t, []string{"APP=web", "MODE=own", "TZ=UTC"}, effectiveEnv(shared, own))
	assert.Empty(t, effectiveEnv(nil, nil))
}
