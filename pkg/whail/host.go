package whail

import (
	"net/url"
	"os"
	"runtime"
	"strings"
)

const (
	// DefaultUnixHost is the daemon socket on non-Windows hosts.
	DefaultUnixHost = "unix:///var/run/docker.sock"

	// DefaultNamedPipeHost is the daemon named pipe on Windows hosts.
	DefaultNamedPipeHost = "npipe:////./pipe/docker_engine"

	// HostEnvVar overrides the daemon endpoint.
	HostEnvVar = "DOCKER_HOST"
)

// HostOptions are the explicit inputs of daemon endpoint resolution.
type HostOptions struct {
	// Override is an explicit endpoint, usually the value of DOCKER_HOST.
	Override string
	// GOOS selects the platform default when Override is empty.
	GOOS string
}

// DaemonHost resolves the daemon endpoint. An override always wins; otherwise
// Windows uses the named pipe and everything else the unix socket.
func DaemonHost(opts HostOptions) string {
	if o := strings.TrimSpace(opts.Override); o != "" {
		return o
	}
	if opts.GOOS == "windows" {
		return DefaultNamedPipeHost
	}
	return DefaultUnixHost
}

// HostFromEnv resolves the daemon endpoint for the current process.
func HostFromEnv() string {
	return DaemonHost(HostOptions{
		Override: os.Getenv(HostEnvVar),
		GOOS:     runtime.GOOS,
	})
}

// ServiceHost returns the host name on which ports published by the daemon at
// daemonHost are reachable. Local transports publish on localhost; remote ones
// on the daemon's own host.
func ServiceHost(daemonHost string) string {
	u, err := url.Parse(daemonHost)
	if err != nil {
		return "localhost"
	}
	switch u.Scheme {
	case "tcp", "http", "https", "ssh":
		if h := u.Hostname(); h != "" {
			return h
		}
	}
	return "localhost"
}
