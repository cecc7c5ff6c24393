package whail

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	cerrdefs "github.com/containerd/errdefs"
)

// DockerError represents a user-friendly Docker error with remediation steps.
// It wraps underlying Docker SDK errors with context and actionable guidance.
type DockerError struct {
	Op        string   // Operation that failed (e.g., "connect", "create", "stop")
	Err       error    // Underlying error
	Message   string   // Human-readable message
	NextSteps []string // Suggested remediation steps
}

func (e *DockerError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// FormatUserError formats the error for display to users with next steps.
func (e *DockerError) FormatUserError() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))

	if e.Err != nil {
		sb.WriteString(fmt.Sprintf("  Details: %s\n", e.Err.Error()))
	}

	if len(e.NextSteps) > 0 {
		sb.WriteString("\nNext Steps:\n")
		for i, step := range e.NextSteps {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}

	return sb.String()
}

// IsNotFound reports whether err means the resource does not exist on the daemon.
func IsNotFound(err error) bool {
	return err != nil && cerrdefs.IsNotFound(err)
}

// IsUnreachable reports whether err means the daemon connection is unavailable.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var de *DockerError
	if errors.As(err, &de) && de.Op == "connect" {
		return true
	}
	if cerrdefs.IsUnavailable(err) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// ErrDockerNotRunning returns an error for when Docker daemon is not accessible.
func ErrDockerNotRunning(err error) *DockerError {
	return &DockerError{
		Op:      "connect",
		Err:     err,
		Message: "Cannot connect to Docker daemon",
		NextSteps: []string{
			"Ensure Docker is installed",
			"Start Docker Desktop (macOS/Windows) or run 'sudo systemctl start docker' (Linux)",
			"Check if Docker socket is accessible: ls -la /var/run/docker.sock",
			"When running inside a container, mount the host socket or set DOCKER_HOST",
		},
	}
}

// ErrImageNotFound returns an error for when an image cannot be pulled.
func ErrImageNotFound(image string, err error) *DockerError {
	return &DockerError{
		Op:      "pull",
		Err:     err,
		Message: fmt.Sprintf("Image '%s' not found", image),
		NextSteps: []string{
			"Check the image name and tag are correct",
			"Verify you have network access to the registry",
			"Try pulling manually: docker pull " + image,
		},
	}
}

// ErrImageInspectFailed returns an error for when a local image lookup fails.
func ErrImageInspectFailed(image string, err error) *DockerError {
	return &DockerError{
		Op:      "image_inspect",
		Err:     err,
		Message: fmt.Sprintf("Failed to inspect image '%s'", image),
	}
}

// ErrContainerNotFound returns an error for when a container cannot be found.
func ErrContainerNotFound(name string, err error) *DockerError {
	return &DockerError{
		Op:      "find",
		Err:     err,
		Message: fmt.Sprintf("Container '%s' not found", name),
		NextSteps: []string{
			"Check if the container was started",
			"Check all containers: docker ps -a",
		},
	}
}

// ErrContainerNotManaged returns an error for a container that exists but
// was not created by this engine.
func ErrContainerNotManaged(name string) *DockerError {
	return &DockerError{
		Op:      "jail",
		Message: fmt.Sprintf("Container '%s' is not managed by testenv", name),
		NextSteps: []string{
			"Remove or rename the conflicting container: docker rm -f " + name,
			"Use a different environment name",
		},
	}
}

// ErrContainerCreateFailed returns an error for when container creation fails.
func ErrContainerCreateFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "create",
		Err:     err,
		Message: fmt.Sprintf("Failed to create container '%s'", name),
		NextSteps: []string{
			"Check if the image exists",
			"Check for conflicting container names: docker ps -a",
			"Review Docker daemon logs for details",
		},
	}
}

// ErrContainerStartFailed returns an error for when a container fails to start.
func ErrContainerStartFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "start",
		Err:     err,
		Message: fmt.Sprintf("Failed to start container '%s'", name),
		NextSteps: []string{
			"Check container logs: docker logs " + name,
			"Verify the image is valid",
			"Check for port conflicts",
		},
	}
}

// ErrContainerStopFailed returns an error for when a container fails to stop.
func ErrContainerStopFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "stop",
		Err:     err,
		Message: fmt.Sprintf("Failed to stop container '%s'", name),
		NextSteps: []string{
			"Force removal: docker rm -f " + name,
		},
	}
}

// ErrContainerRemoveFailed returns an error for when container removal fails.
func ErrContainerRemoveFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "remove",
		Err:     err,
		Message: fmt.Sprintf("Failed to remove container '%s'", name),
		NextSteps: []string{
			"Check if the container exists",
			"Review Docker daemon logs for details",
		},
	}
}

// ErrContainerInspectFailed returns an error for when inspecting a container fails.
func ErrContainerInspectFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "inspect",
		Err:     err,
		Message: fmt.Sprintf("Failed to inspect container '%s'", name),
	}
}

// ErrContainerLogsFailed returns an error for when reading container logs fails.
func ErrContainerLogsFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "logs",
		Err:     err,
		Message: fmt.Sprintf("Failed to read logs of container '%s'", name),
	}
}

// ErrContainerListFailed returns an error for when listing containers fails.
func ErrContainerListFailed(err error) *DockerError {
	return &DockerError{
		Op:      "list",
		Err:     err,
		Message: "Failed to list containers",
	}
}

// ErrNetworkCreateFailed returns an error for when network creation fails.
func ErrNetworkCreateFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "network_create",
		Err:     err,
		Message: fmt.Sprintf("Failed to create network '%s'", name),
		NextSteps: []string{
			"Check for conflicting network names: docker network ls",
			"Check for overlapping subnets",
		},
	}
}

// ErrNetworkRemoveFailed returns an error for when network removal fails.
func ErrNetworkRemoveFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "network_remove",
		Err:     err,
		Message: fmt.Sprintf("Failed to remove network '%s'", name),
		NextSteps: []string{
			"Check for containers still attached: docker network inspect " + name,
		},
	}
}

// ErrNetworkListFailed returns an error for when listing networks fails.
func ErrNetworkListFailed(err error) *DockerError {
	return &DockerError{
		Op:      "network_list",
		Err:     err,
		Message: "Failed to list networks",
	}
}
