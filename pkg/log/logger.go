package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents logging verbosity
type Level int

const (
	ErrorLevel Level = iota
	InfoLevel
	DebugLevel
	TraceLevel
)

var levelNames = map[Level]string{
	ErrorLevel: "ERROR",
	InfoLevel:  "INFO",
	DebugLevel: "DEBUG",
	TraceLevel: "TRACE",
}

// Logger writes leveled messages to stdout/stderr and, optionally, a log
// file. When running inside GitHub Actions, errors, warnings and debug lines
// are also emitted as workflow commands so they show up as annotations.
type Logger struct {
	level      Level
	logFile    *os.File
	mu         sync.Mutex
	stdout     io.Writer
	stderr     io.Writer
	fileLogger *log.Logger
	actions    bool
}

// Option configures a Logger
type Option func(*Logger)

// WithWriters replaces stdout and stderr
func WithWriters(stdout, stderr io.Writer) Option {
	return func(l *Logger) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithActions forces workflow-command output on or off. By default it follows
// the GITHUB_ACTIONS environment variable.
func WithActions(enabled bool) Option {
	return func(l *Logger) {
		l.actions = enabled
	}
}

// New creates a new logger. If logDir is non-empty a timestamped log file is
// created there.
func New(level Level, logDir string, opts ...Option) (*Logger, error) {
	l := &Logger{
		level:   level,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		actions: os.Getenv("GITHUB_ACTIONS") == "true",
	}
	for _, o := range opts {
		o(l)
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		logPath := filepath.Join(logDir, fmt.Sprintf("pr-coverage-%s.log", time.Now().Format("20060102-150405")))
		f, err := os.Create(logPath)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.logFile = f
		l.fileLogger = log.New(f, "", log.LstdFlags)
	}

	return l, nil
}

// Discard returns a logger that writes nothing. Useful as a default for
// library callers and tests.
func Discard() *Logger {
	return &Logger{level: ErrorLevel, stdout: io.Discard, stderr: io.Discard}
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level Level) bool {
	return level <= l.level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level > l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.fileLogger != nil {
		l.fileLogger.Printf("[%s] %s", levelNames[level], msg)
	}

	switch {
	case level == ErrorLevel && l.actions:
		fmt.Fprintf(l.stdout, "::error::%s\n", escapeData(msg))
	case level == ErrorLevel:
		fmt.Fprintf(l.stderr, "❌ %s\n", msg)
	case level >= DebugLevel && l.actions:
		fmt.Fprintf(l.stdout, "::debug::%s\n", escapeData(msg))
	default:
		fmt.Fprintf(l.stdout, "%s\n", msg)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(TraceLevel, format, args...)
}

// Progress logs a progress message (always shown)
func (l *Logger) Progress(format string, args ...interface{}) {
	l.always("PROGRESS", "⏳", format, args...)
}

// Success logs a success message (always shown)
func (l *Logger) Success(format string, args ...interface{}) {
	l.always("SUCCESS", "✅", format, args...)
}

// Warning logs a warning message (always shown)
func (l *Logger) Warning(format string, args ...interface{}) {
	if l.actions {
		l.mu.Lock()
		msg := fmt.Sprintf(format, args...)
		if l.fileLogger != nil {
			l.fileLogger.Printf("[WARNING] %s", msg)
		}
		fmt.Fprintf(l.stdout, "::warning::%s\n", escapeData(msg))
		l.mu.Unlock()
		return
	}
	l.always("WARNING", "⚠️ ", format, args...)
}

func (l *Logger) always(tag, emoji, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.fileLogger != nil {
		l.fileLogger.Printf("[%s] %s", tag, msg)
	}
	fmt.Fprintf(l.stdout, "%s %s\n", emoji, msg)
}

// escapeData applies the workflow-command escaping for message data
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// ParseLevel parses a string into a log level
func ParseLevel(s string) (Level, error) {
	switch s {
	case "error":
		return ErrorLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "trace":
		return TraceLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s (valid: error, info, debug, trace)", s)
	}
}
