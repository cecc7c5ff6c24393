package testenv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/pkg/whail"
)

func TestEngineError(t *testing.T) {
	cause := errors.New("no space left on device")
	err := engineErr("create", "it-web", cause)

	assert.EqualError(t, err, "create it-web: no space left on device")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnreachable)

	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "create", ee.Op)

	assert.NoError(t, engineErr("create", "it-web", nil))
}

func TestEngineError_Unreachable(t *testing.T) {
	err := engineErr("inspect", "it-web", whail.ErrDockerNotRunning(errors.New("dial unix: connection refused")))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestTeardownError(t *testing.T) {
	a := errors.New("a failed")
	b := errors.New("b failed")
	err := &TeardownError{
		Environment: "it",
		Failures:    []DependencyError{{Name: "it-a", Err: a}, {Name: "it-b", Err: b}},
	}

	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.Equal(t, []string{"it-a", "it-b"}, err.Names())
	assert.Contains(t, err.Error(), "2 dependencies failed to stop")
	assert.Contains(t, err.Error(), "it-b: b failed")
}

func TestStartError(t *testing.T) {
	cause := errors.New("boom")
	err := &StartError{Name: "it-b", Err: cause, Rollback: errors.New("stuck")}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "start dependency it-b: boom")
	assert.Contains(t, err.Error(), "rollback: stuck")
}
