// Package logger provides diagnostics and debug logging for Ferret EVTX
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the main logger instance
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	filePath string
	enabled  bool
	level    Level
}

var (
	instance *Logger
	once     sync.Once

	consoleMu sync.Mutex
	console   io.Writer = os.Stderr
)

// Init initializes the global debug logger
func Init(outputDir string, enabled bool) error {
	var initErr error
	once.Do(func() {
		instance = &Logger{
			enabled: enabled,
			level:   LevelDebug,
		}

		if !enabled {
			return
		}

		timestamp := time.Now().Format("20060102_150405")
		hostname, _ := os.Hostname()
		logFileName := fmt.Sprintf("ferret-evtx_debug_%s_%s.log", hostname, timestamp)

		if outputDir == "" {
			outputDir = "."
		}

		logPath := filepath.Join(outputDir, logFileName)
		file, err := os.Create(logPath)
		if err != nil {
			initErr = fmt.Errorf("failed to create log file: %w", err)
			return
		}

		instance.file = file
		instance.filePath = logPath

		instance.writeHeader()
	})

	return initErr
}

// SetConsole redirects operator diagnostics ([ERROR]/[WARN] lines).
// It returns the previous writer.
func SetConsole(w io.Writer) io.Writer {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	prev := console
	console = w
	return prev
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	if instance == nil || instance.file == nil {
		return ""
	}
	return instance.filePath
}

// Close closes the log file
func Close() {
	if instance != nil && instance.file != nil {
		instance.writeFooter()
		instance.file.Close()
	}
}

func (l *Logger) writeHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	hostname, _ := os.Hostname()
	header := fmt.Sprintf(`================================================================================
Ferret EVTX Debug Log
================================================================================
Start Time: %s
Hostname:   %s
OS:         %s/%s
Go Version: %s
================================================================================

`, time.Now().Format("2006-01-02 15:04:05.000 MST"), hostname, runtime.GOOS, runtime.GOARCH, runtime.Version())

	l.file.WriteString(header)
}

func (l *Logger) writeFooter() {
	l.mu.Lock()
	defer l.mu.Unlock()

	footer := fmt.Sprintf(`
================================================================================
End Time: %s
================================================================================
`, time.Now().Format("2006-01-02 15:04:05.000 MST"))

	l.file.WriteString(footer)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil || !l.enabled || l.file == nil {
		return
	}

	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	_, file, line, ok := runtime.Caller(3)
	caller := ""
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	logLine := fmt.Sprintf("[%s] [%-5s] [%-20s] %s\n", timestamp, level.String(), caller, msg)
	l.file.WriteString(logLine)
}

func write(level Level, format string, args ...interface{}) {
	if instance != nil {
		instance.log(level, format, args...)
	}
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	write(LevelDebug, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	write(LevelInfo, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	write(LevelWarn, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	write(LevelError, format, args...)
}

// Alert reports a non-fatal error to the operator and the debug log
func Alert(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	consoleLine("[ERROR] " + msg)
	write(LevelError, "%s", msg)
}

// Notice reports a warning to the operator and the debug log
func Notice(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	consoleLine("[WARN] " + msg)
	write(LevelWarn, "%s", msg)
}

func consoleLine(s string) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	fmt.Fprintln(console, s)
}

// Section logs a section header for better readability
func Section(name string) {
	write(LevelInfo, "")
	write(LevelInfo, "========== %s ==========", name)
}

// SubSection logs a subsection header
func SubSection(name string) {
	write(LevelInfo, "--- %s ---", name)
}

// Timing logs execution time for a function
func Timing(operation string, start time.Time) {
	write(LevelDebug, "[TIMING] %s completed in %v", operation, time.Since(start))
}

// FindingInfo logs an emitted finding
func FindingInfo(eventID, headline, command string) {
	write(LevelInfo, "Finding: [%s] %s %s", eventID, headline, truncate(command, 200))
}

// RuleInfo logs a loaded rule table
func RuleInfo(source string, count int) {
	write(LevelInfo, "Rules: %s (%d entries)", source, count)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
