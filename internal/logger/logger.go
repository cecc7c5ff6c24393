package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DebugEnvVar turns on debug output of the default logger when set to "1".
const DebugEnvVar = "TESTENV_DEBUG"

// LogFileName is the rotated log file written by InitWithFile.
const LogFileName = "testenv.log"

var (
	// Log is the global logger instance
	Log zerolog.Logger = zerolog.Nop()

	// fileWriter is the file output for logging (with rotation)
	fileWriter *lumberjack.Logger

	// logContext holds the environment name for log entries (optional, may be empty)
	logContext   string
	logContextMu sync.RWMutex
)

// SetEnvironment tags all subsequent entries of the global helpers with the
// environment name. Pass "" to clear. Thread-safe.
func SetEnvironment(name string) {
	logContextMu.Lock()
	defer logContextMu.Unlock()
	logContext = name
}

func addContext(event *zerolog.Event) *zerolog.Event {
	logContextMu.RLock()
	env := logContext
	logContextMu.RUnlock()
	if env != "" {
		event = event.Str("environment", env)
	}
	return event
}

// LoggingConfig holds configuration for file-based logging.
// This matches internal/config.LoggingConfig but is duplicated here
// to avoid circular imports.
type LoggingConfig struct {
	FileEnabled *bool
	MaxSizeMB   int
	MaxAgeDays  int
	MaxBackups  int
}

// IsFileEnabled returns whether file logging is enabled.
// Defaults to false if not explicitly set.
func (c *LoggingConfig) IsFileEnabled() bool {
	if c.FileEnabled == nil {
		return false
	}
	return *c.FileEnabled
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (c *LoggingConfig) GetMaxSizeMB() int {
	if c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (c *LoggingConfig) GetMaxAgeDays() int {
	if c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (c *LoggingConfig) GetMaxBackups() int {
	if c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

// Options configures a standalone logger built by New.
type Options struct {
	// Out receives the log lines. Defaults to os.Stderr.
	Out io.Writer
	// Debug lowers the level from info to debug.
	Debug bool
	// JSON writes JSON lines instead of console formatting.
	JSON bool
	// NoColor disables ANSI colors of the console format.
	NoColor bool
}

// New returns a logger configured by opts. It does not touch the global Log.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = consoleWriter(out, opts.NoColor)
	}
	return zerolog.New(out).
		Level(level(opts.Debug)).
		With().
		Timestamp().
		Logger()
}

// Default is the logger environments use when none is given: console output
// on stderr at info level, debug when TESTENV_DEBUG=1.
func Default() zerolog.Logger {
	return New(Options{Debug: os.Getenv(DebugEnvVar) == "1"})
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
}

// Init initializes the global logger with console output on stderr.
// Use InitWithFile for file logging.
func Init(debug bool) {
	Log = New(Options{Debug: debug})
}

// InitWithFile initializes the global logger with optional file output.
// If logsDir is empty or cfg indicates file logging is disabled,
// this behaves like Init (console-only).
func InitWithFile(debug bool, logsDir string, cfg *LoggingConfig) error {
	if logsDir == "" || cfg == nil || !cfg.IsFileEnabled() {
		Init(debug)
		return nil
	}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Configure lumberjack for rotation
	fileWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, LogFileName),
		MaxSize:    cfg.GetMaxSizeMB(),  // MB
		MaxAge:     cfg.GetMaxAgeDays(), // days
		MaxBackups: cfg.GetMaxBackups(),
		LocalTime:  true,
	}

	// Console uses human-readable format, file uses JSON
	multi := zerolog.MultiLevelWriter(consoleWriter(os.Stderr, false), fileWriter)

	Log = zerolog.New(multi).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()

	return nil
}

// CloseFileWriter closes the file writer if it exists.
// Call this on program shutdown for clean log file closure.
func CloseFileWriter() error {
	if fileWriter != nil {
		err := fileWriter.Close()
		fileWriter = nil // Prevent double-close and writes to closed file
		return err
	}
	return nil
}

// GetLogFilePath returns the path to the current log file, or empty string if file logging is disabled.
func GetLogFilePath() string {
	if fileWriter != nil {
		return fileWriter.Filename
	}
	return ""
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return addContext(Log.Debug())
}

// Info logs an info message
func Info() *zerolog.Event {
	return addContext(Log.Info())
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return addContext(Log.Warn())
}

// Error logs an error message
func Error() *zerolog.Event {
	return addContext(Log.Error())
}

// WithField returns a logger with an additional field
func WithField(key string, value any) zerolog.Logger {
	return Log.With().Interface(key, value).Logger()
}
