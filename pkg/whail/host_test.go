package whail

import "testing"

func TestDaemonHost(t *testing.T) {
	tests := []struct {
		name string
		opts HostOptions
		want string
	}{
		{"linux default", HostOptions{GOOS: "linux"}, DefaultUnixHost},
		{"darwin default", HostOptions{GOOS: "darwin"}, DefaultUnixHost},
		{"windows default", HostOptions{GOOS: "windows"}, DefaultNamedPipeHost},
		{"override wins", HostOptions{Override: "tcp://10.0.0.5:2375", GOOS: "windows"}, "tcp://10.0.0.5:2375"},
		{"blank override ignored", HostOptions{Override: "  ", GOOS: "linux"}, DefaultUnixHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaemonHost(tt.opts); got != tt.want {
				t.Errorf("DaemonHost() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHostFromEnv(t *testing.T) {
	t.Setenv(HostEnvVar, "tcp://docker.internal:2376")
	if got := HostFromEnv(); got != "tcp://docker.internal:2376" {
		t.Errorf("HostFromEnv() = %q", got)
	}
}

func TestServiceHost(t *testing.T) {
	tests := []struct {
		daemon string
		want   string
	}{
		{DefaultUnixHost, "localhost"},
		{DefaultNamedPipeHost, "localhost"},
		{"tcp://10.0.0.5:2375", "10.0.0.5"},
		{"ssh://ci@build-box", "build-box"},
		{"tcp://:2375", "localhost"},
		{"::not a url", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.daemon, func(t *testing.T) {
			if got := ServiceHost(tt.daemon); got != tt.want {
				t.Errorf("ServiceHost(%q) = %q, want %q", tt.daemon, got, tt.want)
			}
		})
	}
}
