// Package config loads testenv.yaml environment files.
package config

import (
	"time"

	"github.com/schmitthub/testenv/internal/logger"
)

// Config is a declared environment.
type Config struct {
	Name         string            `mapstructure:"name" yaml:"name"`
	DinD         bool              `mapstructure:"dind" yaml:"dind"`
	Parallel     bool              `mapstructure:"parallel" yaml:"parallel"`
	ReadyTimeout time.Duration     `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	Variables    map[string]string `mapstructure:"variables" yaml:"variables"`
	Networks     []string          `mapstructure:"networks" yaml:"networks"`
	Containers   []ContainerConfig `mapstructure:"containers" yaml:"containers"`
	Logging      LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// ContainerConfig declares one container dependency.
type ContainerConfig struct {
	Name        string            `mapstructure:"name" yaml:"name"`
	Image       string            `mapstructure:"image" yaml:"image"`
	Tag         string            `mapstructure:"tag" yaml:"tag"`
	Env         map[string]string `mapstructure:"env" yaml:"env"`
	Ports       []string          `mapstructure:"ports" yaml:"ports"`
	Cmd         []string          `mapstructure:"cmd" yaml:"cmd"`
	Network     string            `mapstructure:"network" yaml:"network"`
	Aliases     []string          `mapstructure:"aliases" yaml:"aliases"`
	Labels      map[string]string `mapstructure:"labels" yaml:"labels"`
	StopTimeout time.Duration     `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	Probe       ProbeConfig       `mapstructure:"probe" yaml:"probe"`
}

// Probe types accepted by ProbeConfig.Type.
const (
	ProbeRunning = "running"
	ProbeHealth  = "health"
	ProbePort    = "port"
	ProbeLog     = "log"
)

// ProbeConfig selects the readiness check of a container. An empty Type
// means ProbeRunning.
type ProbeConfig struct {
	Type     string        `mapstructure:"type" yaml:"type"`
	Port     string        `mapstructure:"port" yaml:"port"`
	Pattern  string        `mapstructure:"pattern" yaml:"pattern"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// LoggingConfig configures the optional log file.
type LoggingConfig struct {
	FileEnabled *bool `mapstructure:"file_enabled" yaml:"file_enabled"`
	MaxSizeMB   int   `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays  int   `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups  int   `mapstructure:"max_backups" yaml:"max_backups"`
}

// Logger converts c for logger.InitWithFile.
func (c LoggingConfig) Logger() *logger.LoggingConfig {
	return &logger.LoggingConfig{
		FileEnabled: c.FileEnabled,
		MaxSizeMB:   c.MaxSizeMB,
		MaxAgeDays:  c.MaxAgeDays,
		MaxBackups:  c.MaxBackups,
	}
}

// Container returns the container declared as name.
func (c *Config) Container(name string) (ContainerConfig, bool) {
	for _, cc := range c.Containers {
		if cc.Name == name {
			return cc, true
		}
	}
	return ContainerConfig{}, false
}
