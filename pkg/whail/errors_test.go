package whail

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

type notFoundErr struct{}

func (notFoundErr) Error() string { return "No such container: web" }
func (notFoundErr) NotFound()     {}

func TestDockerError_Error(t *testing.T) {
	err := &DockerError{Op: "test", Message: "test error message"}
	if err.Error() != "test error message" {
		t.Errorf("Error() = %q, want %q", err.Error(), "test error message")
	}

	err.Err = errors.New("boom")
	if err.Error() != "test error message: boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "test error message: boom")
	}
}

func TestDockerError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &DockerError{Op: "test", Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("Unwrap() should return underlying error")
	}
}

func TestDockerError_FormatUserError(t *testing.T) {
	err := ErrContainerStartFailed("web", errors.New("port is already allocated"))
	out := err.FormatUserError()

	for _, part := range []string{
		"Error: Failed to start container 'web'",
		"Details: port is already allocated",
		"Next Steps:",
		"1. Check container logs: docker logs web",
	} {
		if !strings.Contains(out, part) {
			t.Errorf("FormatUserError() missing %q in:\n%s", part, out)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) = true")
	}
	if !IsNotFound(notFoundErr{}) {
		t.Error("IsNotFound(notFound) = false")
	}
	if !IsNotFound(ErrContainerNotFound("web", notFoundErr{})) {
		t.Error("wrapped not-found should satisfy IsNotFound")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("plain error should not satisfy IsNotFound")
	}
}

func TestIsUnreachable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connect op", ErrDockerNotRunning(errors.New("dial")), true},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"wrapped errno", fmt.Errorf("ping: %w", syscall.ECONNREFUSED), true},
		{"create failure", ErrContainerCreateFailed("web", errors.New("bad config")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnreachable(tt.err); got != tt.want {
				t.Errorf("IsUnreachable() = %v, want %v", got, tt.want)
			}
		})
	}
}
