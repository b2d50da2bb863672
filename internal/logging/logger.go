package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// Logger is the global logger instance. Nil until Init or InitWriter.
	Logger *log.Logger

	// logFile is the file handle for the log file
	logFile *os.File
)

// Init opens a dated log file under dir. The TUI owns the terminal, so it
// always logs to a file. verbose lowers the level to debug.
func Init(dir string, verbose bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFileName := fmt.Sprintf("waterlens-%s.log", time.Now().Format("2006-01-02"))
	logPath := filepath.Join(dir, logFileName)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	InitWriter(f, verbose)
	Logger.Info("waterlens started", "log", logPath)
	return nil
}

// InitWriter points the global logger at w. The CLI uses it with stderr.
func InitWriter(w io.Writer, verbose bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Close closes the log file
func Close() {
	if Logger != nil && logFile != nil {
		Logger.Info("waterlens shutting down")
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Verbose reports whether debug logging is on.
func Verbose() bool {
	return Logger != nil && Logger.GetLevel() <= log.DebugLevel
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// WithPrefix returns a logger with a prefix, or nil before initialization.
func WithPrefix(prefix string) *log.Logger {
	if Logger != nil {
		return Logger.WithPrefix(prefix)
	}
	return nil
}
