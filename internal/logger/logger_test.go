package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	Init(false)
	if Log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Init(false) level = %v, want info", Log.GetLevel())
	}

	Init(true)
	if Log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Init(true) level = %v, want debug", Log.GetLevel())
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Out: &buf, JSON: true})

	log.Debug().Msg("hidden")
	log.Info().Str("dependency", "it-web").Msg("container started")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, `"dependency":"it-web"`) {
		t.Errorf("missing field in %q", out)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Out: &buf, Debug: true, NoColor: true})

	log.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("console output missing message: %q", buf.String())
	}
	if strings.Contains(buf.String(), "{") {
		t.Errorf("console output should not be JSON: %q", buf.String())
	}
}

func TestDefault(t *testing.T) {
	t.Setenv(DebugEnvVar, "")
	if got := Default().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("Default() level = %v, want info", got)
	}

	t.Setenv(DebugEnvVar, "1")
	if got := Default().GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("Default() level with %s=1 = %v, want debug", DebugEnvVar, got)
	}
}

func TestLoggingConfigDefaults(t *testing.T) {
	cfg := &LoggingConfig{}
	if cfg.IsFileEnabled() {
		t.Error("IsFileEnabled should default to false when nil")
	}

	trueVal := true
	cfg.FileEnabled = &trueVal
	if !cfg.IsFileEnabled() {
		t.Error("IsFileEnabled should return true when explicitly set")
	}

	cfg = &LoggingConfig{}
	if cfg.GetMaxSizeMB() != 50 {
		t.Errorf("GetMaxSizeMB should default to 50, got %d", cfg.GetMaxSizeMB())
	}
	if cfg.GetMaxAgeDays() != 7 {
		t.Errorf("GetMaxAgeDays should default to 7, got %d", cfg.GetMaxAgeDays())
	}
	if cfg.GetMaxBackups() != 3 {
		t.Errorf("GetMaxBackups should default to 3, got %d", cfg.GetMaxBackups())
	}

	cfg = &LoggingConfig{MaxSizeMB: 20, MaxAgeDays: 14, MaxBackups: 5}
	if cfg.GetMaxSizeMB() != 20 || cfg.GetMaxAgeDays() != 14 || cfg.GetMaxBackups() != 5 {
		t.Errorf("custom values not returned: %+v", cfg)
	}
}

func TestInitWithFile(t *testing.T) {
	tmpDir := t.TempDir()
	enabled := true
	cfg := &LoggingConfig{FileEnabled: &enabled, MaxSizeMB: 1, MaxAgeDays: 1, MaxBackups: 1}

	if err := InitWithFile(false, tmpDir, cfg); err != nil {
		t.Fatalf("InitWithFile failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, LogFileName)
	if got := GetLogFilePath(); got != expectedPath {
		t.Errorf("GetLogFilePath = %q, want %q", got, expectedPath)
	}

	SetEnvironment("it")
	t.Cleanup(func() { SetEnvironment("") })
	Info().Msg("test log message")

	if err := CloseFileWriter(); err != nil {
		t.Errorf("CloseFileWriter failed: %v", err)
	}

	content, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "test log message") {
		t.Error("Log file should contain the test message")
	}
	if !strings.Contains(string(content), `"environment":"it"`) {
		t.Error("Log file should carry the environment field")
	}
}

func TestInitWithFileDisabled(t *testing.T) {
	fileWriter = nil

	falseVal := false
	cfg := &LoggingConfig{FileEnabled: &falseVal}

	if err := InitWithFile(false, "/some/path", cfg); err != nil {
		t.Fatalf("InitWithFile with disabled file logging should not fail: %v", err)
	}
	if GetLogFilePath() != "" {
		t.Error("GetLogFilePath should return empty when file logging is disabled")
	}
}

func TestCloseFileWriterTwice(t *testing.T) {
	fileWriter = nil
	if err := CloseFileWriter(); err != nil {
		t.Errorf("CloseFileWriter with no writer: %v", err)
	}
}
