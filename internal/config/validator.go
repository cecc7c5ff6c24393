package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/schmitthub/testenv/internal/logger"
)

// ErrInvalidConfig is wrapped by every validation and decoding error.
var ErrInvalidConfig = errors.New("invalid config")

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Validator validates a Config for correctness.
type Validator struct {
	errors   []error
	warnings []string
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks cfg and returns every issue found as a
// *MultiValidationError.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil
	v.warnings = nil

	v.validateEnvironment(cfg)
	networks := v.validateNetworks(cfg)
	v.validateContainers(cfg, networks)
	v.validateLogging(cfg)

	if len(v.errors) > 0 {
		return &MultiValidationError{Errors: v.errors}
	}
	return nil
}

// Warnings returns the warnings of the last Validate.
func (v *Validator) Warnings() []string {
	return v.warnings
}

func (v *Validator) addError(field, message string, value any) {
	v.errors = append(v.errors, &ValidationError{Field: field, Message: message, Value: value})
}

func (v *Validator) addWarning(field, message string) {
	v.warnings = append(v.warnings, fmt.Sprintf("%s: %s", field, message))
	logger.Warn().Str("field", field).Msg(message)
}

func (v *Validator) validateEnvironment(cfg *Config) {
	if cfg.Name != "" && !nameRe.MatchString(cfg.Name) {
		v.addError("name", "must start with a letter or digit and contain only letters, digits, '_', '.' or '-'", cfg.Name)
	}
	if cfg.ReadyTimeout < 0 {
		v.addError("ready_timeout", "must not be negative", cfg.ReadyTimeout)
	}
	for name := range cfg.Variables {
		if name == "" || strings.Contains(name, "=") {
			v.addError("variables", "names must be non-empty and must not contain '='", name)
		}
	}
}

func (v *Validator) validateNetworks(cfg *Config) map[string]bool {
	declared := make(map[string]bool, len(cfg.Networks))
	for i, n := range cfg.Networks {
		field := fmt.Sprintf("networks[%d]", i)
		switch {
		case n == "":
			v.addError(field, "is required", nil)
		case !nameRe.MatchString(n):
			v.addError(field, "is not a valid network name", n)
		case declared[n]:
			v.addError(field, "is declared twice", n)
		}
		declared[n] = true
	}
	return declared
}

func (v *Validator) validateContainers(cfg *Config, networks map[string]bool) {
	if len(cfg.Containers) == 0 && len(cfg.Networks) == 0 {
		v.addWarning("containers", "environment declares no dependencies")
	}

	seen := make(map[string]bool, len(cfg.Containers))
	for i, c := range cfg.Containers {
		field := fmt.Sprintf("containers[%d]", i)
		switch {
		case c.Name == "":
			v.addError(field+".name", "is required", nil)
		case !nameRe.MatchString(c.Name):
			v.addError(field+".name", "is not a valid container name", c.Name)
		case seen[c.Name] || networks[c.Name]:
			v.addError(field+".name", "is declared twice", c.Name)
		}
		seen[c.Name] = true

		if strings.TrimSpace(c.Image) == "" {
			v.addError(field+".image", "is required", nil)
		} else if strings.Contains(c.Image, ":") && c.Tag != "" {
			v.addError(field+".image", "must not carry a tag when tag is set", c.Image)
		}
		if c.Network != "" && !networks[c.Network] {
			v.addError(field+".network", "is not declared under networks", c.Network)
		}
		if len(c.Aliases) > 0 && c.Network == "" {
			v.addError(field+".aliases", "require network", c.Aliases)
		}
		if c.StopTimeout < 0 {
			v.addError(field+".stop_timeout", "must not be negative", c.StopTimeout)
		}
		for name := range c.Env {
			if name == "" || strings.Contains(name, "=") {
				v.addError(field+".env", "names must be non-empty and must not contain '='", name)
			}
		}
		v.validateProbe(field+".probe", c)
	}
}

func (v *Validator) validateProbe(field string, c ContainerConfig) {
	p := c.Probe
	if p.Interval < 0 {
		v.addError(field+".interval", "must not be negative", p.Interval)
	}
	switch p.Type {
	case "", ProbeRunning, ProbeHealth:
	case ProbePort:
		if p.Port == "" {
			v.addError(field+".port", "is required for port probes", nil)
		} else if !declaresPort(c.Ports, p.Port) {
			v.addError(field+".port", "must be listed under ports", p.Port)
		}
	case ProbeLog:
		if p.Pattern == "" {
			v.addError(field+".pattern", "is required for log probes", nil)
		} else if _, err := regexp.Compile(p.Pattern); err != nil {
			v.addError(field+".pattern", "is not a valid regular expression: "+err.Error(), p.Pattern)
		}
	default:
		v.addError(field+".type", "must be one of running, health, port, log", p.Type)
	}
}

func (v *Validator) validateLogging(cfg *Config) {
	l := cfg.Logging
	if l.MaxSizeMB < 0 {
		v.addError("logging.max_size_mb", "must not be negative", l.MaxSizeMB)
	}
	if l.MaxAgeDays < 0 {
		v.addError("logging.max_age_days", "must not be negative", l.MaxAgeDays)
	}
	if l.MaxBackups < 0 {
		v.addError("logging.max_backups", "must not be negative", l.MaxBackups)
	}
}

// declaresPort compares port specs with "/tcp" implied.
func declaresPort(ports []string, port string) bool {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		if !strings.Contains(s, "/") {
			s += "/tcp"
		}
		return s
	}
	want := norm(port)
	for _, p := range ports {
		if norm(p) == want {
			return true
		}
	}
	return false
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return "invalid " + e.Field + ": " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s (got %v)", e.Field, e.Message, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// MultiValidationError holds every ValidationError of one file.
type MultiValidationError struct {
	Errors []error
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d configuration errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (e *MultiValidationError) Unwrap() []error { return e.Errors }

// ValidationErrors returns the individual errors.
func (e *MultiValidationError) ValidationErrors() []error {
	return e.Errors
}
