// Package logx provides leveled logging for infera components.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped, component-tagged log lines to stderr.
type Logger struct {
	component string
	logger    *log.Logger
}

// Level identifies the severity of a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	verboseMu sync.RWMutex
	verbose   bool
)

func init() {
	if v := os.Getenv("INFERA_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		verbose = true
	}
}

// SetVerbose enables or disables debug-level output globally.
// The CLI calls this once per invocation from the --verbose flag.
func SetVerbose(on bool) {
	verboseMu.Lock()
	defer verboseMu.Unlock()
	verbose = on
}

// IsVerbose reports whether debug-level output is enabled.
func IsVerbose() bool {
	verboseMu.RLock()
	defer verboseMu.RUnlock()
	return verbose
}

// NewLogger creates a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0), // stderr keeps stdout clean for CLI output
	}
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.component, level, message)
}

// Debug logs a debug message. No output unless verbose mode is on.
func (l *Logger) Debug(format string, args ...any) {
	if !IsVerbose() {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

var defaultLogger = NewLogger("infera")

func Debugf(format string, args ...any) {
	defaultLogger.Debug(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}
