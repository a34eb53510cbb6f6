// Package logger configures application logging: console or JSON output,
// file rotation, and live streaming to the dashboard.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog for application logging.
type Logger struct {
	zerolog.Logger
	rotator     *lumberjack.Logger
	broadcaster *LogBroadcaster
	logPath     string
}

// Config holds logger configuration.
type Config struct {
	Level      string
	Format     string // "console" or "json"
	Path       string // directory for log files
	MaxSizeMB  int    // max size in MB before rotation (default: 10)
	MaxBackups int    // max number of old log files to keep (default: 5)
	MaxAgeDays int    // max age in days to keep old files (default: 30)
	Compress   bool   // compress rotated files (default: true)
}

// IsDevBuild returns true if running via "go run" (development mode).
// Detected by checking whether the executable lives in go-build's temp
// directory.
func IsDevBuild() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	return strings.Contains(exe, "go-build")
}

// New creates a new logger instance. Entries always pass through an
// in-memory broadcaster so the dashboard can show recent and live logs.
func New(cfg Config) *Logger {
	var consoleOutput io.Writer

	if cfg.Format == "json" {
		consoleOutput = os.Stdout
	} else {
		consoleOutput = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	level := parseLevel(cfg.Level)

	// Auto-enable debug logging for dev builds (go run)
	if IsDevBuild() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	broadcaster := NewLogBroadcaster(nil, recentWindow)

	outputs := []io.Writer{consoleOutput, broadcaster}
	var rotator *lumberjack.Logger
	var logPath string

	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err == nil {
			logPath = filepath.Join(cfg.Path, "chatarr.log")

			maxSize := cfg.MaxSizeMB
			if maxSize <= 0 {
				maxSize = 10
			}
			maxBackups := cfg.MaxBackups
			if maxBackups <= 0 {
				maxBackups = 5
			}
			maxAge := cfg.MaxAgeDays
			if maxAge <= 0 {
				maxAge = 30
			}

			rotator = &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				MaxAge:     maxAge,
				Compress:   cfg.Compress,
				LocalTime:  true,
			}
			outputs = append(outputs, rotator)
		}
	}

	logger := zerolog.New(io.MultiWriter(outputs...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		Logger:      logger,
		rotator:     rotator,
		broadcaster: broadcaster,
		logPath:     logPath,
	}
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// SetHub connects the log stream to a broadcast hub once it exists.
func (l *Logger) SetHub(hub Broadcaster) {
	l.broadcaster.SetHub(hub)
}

// GetRecentLogs returns the buffered recent log entries.
func (l *Logger) GetRecentLogs() []LogEntry {
	return l.broadcaster.GetRecentLogs()
}

// GetLogFilePath returns the active log file path, empty if file logging
// is disabled.
func (l *Logger) GetLogFilePath() string {
	return l.logPath
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a new logger with component field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:      l.Logger.With().Str("component", component).Logger(),
		broadcaster: l.broadcaster,
	}
}
