package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default environment file name.
	ConfigFileName = "testenv.yaml"
	// EnvPrefix prefixes environment overrides, e.g. TESTENV_NAME.
	EnvPrefix = "TESTENV"
)

// Loader reads an environment file.
type Loader struct {
	path  string
	viper *viper.Viper
}

// NewLoader returns a loader for path. A directory resolves to
// ConfigFileName inside it.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigFileName
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}
	return &Loader{path: path, viper: viper.New()}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Exists reports whether the file is present.
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Load reads, decodes and validates the file.
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigNotFoundError{Path: l.path}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.parse(data)
}

// Parse decodes and validates an environment file held in memory.
func Parse(data []byte) (*Config, error) {
	return (&Loader{viper: viper.New()}).parse(data)
}

func (l *Loader) parse(data []byte) (*Config, error) {
	v := l.viper
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("name", defaults.Name)
	v.SetDefault("dind", defaults.DinD)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("ready_timeout", defaults.ReadyTimeout)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: failed to read config: %w", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	if err := restoreKeyCase(cfg, data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}
	if cfg.Variables == nil {
		cfg.Variables = map[string]string{}
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// restoreKeyCase re-reads variables and container env from the YAML. Viper
// lowercases map keys but variable names are case-sensitive.
func restoreKeyCase(cfg *Config, data []byte) error {
	var raw struct {
		Variables  map[string]string `yaml:"variables"`
		Containers []struct {
			Env    map[string]string `yaml:"env"`
			Labels map[string]string `yaml:"labels"`
		} `yaml:"containers"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.Variables) > 0 {
		cfg.Variables = raw.Variables
	}
	for i, c := range raw.Containers {
		if i >= len(cfg.Containers) {
			break
		}
		if len(c.Env) > 0 {
			cfg.Containers[i].Env = c.Env
		}
		if len(c.Labels) > 0 {
			cfg.Containers[i].Labels = c.Labels
		}
	}
	return nil
}

// ConfigNotFoundError is returned when the file doesn't exist.
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

// IsConfigNotFound returns true if err is a ConfigNotFoundError.
func IsConfigNotFound(err error) bool {
	var nf *ConfigNotFoundError
	return errors.As(err, &nf)
}
