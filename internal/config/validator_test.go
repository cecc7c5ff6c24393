package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Name:     "it",
		Networks: []string{"backend"},
		Containers: []ContainerConfig{
			{Name: "db", Image: "postgres", Tag: "14", Ports: []string{"5432"}, Network: "backend"},
		},
	}
}

func TestValidator_Valid(t *testing.T) {
	require.NoError(t, NewValidator().Validate(validConfig()))
}

func TestValidator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad env name", func(c *Config) { c.Name = "-it" }, "name"},
		{"negative timeout", func(c *Config) { c.ReadyTimeout = -1 }, "ready_timeout"},
		{"variable with equals", func(c *Config) { c.Variables = map[string]string{"A=B": "x"} }, "variables"},
		{"empty network", func(c *Config) { c.Networks = append(c.Networks, "") }, "networks[1]"},
		{"duplicate network", func(c *Config) { c.Networks = append(c.Networks, "backend") }, "networks[1]"},
		{"missing container name", func(c *Config) { c.Containers[0].Name = "" }, "containers[0].name"},
		{"duplicate container", func(c *Config) {
			c.Containers = append(c.Containers, ContainerConfig{Name: "db", Image: "postgres"})
		}, "containers[1].name"},
		{"container shadows network", func(c *Config) { c.Containers[0].Name = "backend" }, "containers[0].name"},
		{"missing image", func(c *Config) { c.Containers[0].Image = " " }, "containers[0].image"},
		{"tag twice", func(c *Config) { c.Containers[0].Image = "postgres:15" }, "containers[0].image"},
		{"undeclared network", func(c *Config) { c.Containers[0].Network = "front" }, "containers[0].network"},
		{"aliases without network", func(c *Config) {
			c.Containers[0].Network = ""
			c.Containers[0].Aliases = []string{"database"}
		}, "containers[0].aliases"},
		{"unknown probe", func(c *Config) { c.Containers[0].Probe.Type = "http" }, "containers[0].probe.type"},
		{"port probe without port", func(c *Config) { c.Containers[0].Probe.Type = ProbePort }, "containers[0].probe.port"},
		{"port probe on undeclared port", func(c *Config) {
			c.Containers[0].Probe = ProbeConfig{Type: ProbePort, Port: "8080"}
		}, "containers[0].probe.port"},
		{"log probe bad pattern", func(c *Config) {
			c.Containers[0].Probe = ProbeConfig{Type: ProbeLog, Pattern: "("}
		}, "containers[0].probe.pattern"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)

			var multi *MultiValidationError
			require.ErrorAs(t, err, &multi)
			var fields []string
			for _, e := range multi.ValidationErrors() {
				var ve *ValidationError
				if errors.As(e, &ve) {
					fields = append(fields, ve.Field)
				}
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidator_PortProbeMatchesImpliedProtocol(t *testing.T) {
	cfg := validConfig()
	cfg.Containers[0].Probe = ProbeConfig{Type: ProbePort, Port: "5432/tcp"}
	require.NoError(t, NewValidator().Validate(cfg))
}

func TestValidator_WarnsOnEmptyEnvironment(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Validate(&Config{}))
	assert.Len(t, v.Warnings(), 1)
}

func TestMultiValidationError_Message(t *testing.T) {
	one := &MultiValidationError{Errors: []error{&ValidationError{Field: "name", Message: "is required"}}}
	assert.Equal(t, "invalid name: is required", one.Error())

	two := &MultiValidationError{Errors: []error{
		&ValidationError{Field: "a", Message: "bad"},
		&ValidationError{Field: "b", Message: "worse", Value: 3},
	}}
	assert.Equal(t, "found 2 configuration errors:\n  1. invalid a: bad\n  2. invalid b: worse (got 3)\n", two.Error())
}
