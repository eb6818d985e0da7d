// Package logger provides a thread-safe logger for the broker's node
// processes. It supports multiple log levels (INFO, WARNING, ERROR,
// DEBUG) and output modes (DEV, RELEASE, VERBOSE, HIDDEN).
//
// Key Features:
// - Built-in ANSI color output for console
// - File logging to one timestamped file per Logger (no rotation)
// - Module-aware formatting (default: "[EV3Broker]")
// - Thread-safe operations with sync.Mutex
//
// Example:
//
//	log, _ := logger.New("./logs", logger.RELEASE)
//	log.Log("server", logger.INFO, "listening on :4721")
//	defer log.Close()
package logger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogType represents different severity levels for log messages.
type LogType uint8

const (
	INFO LogType = iota
	WARNING
	ERROR
	DEBUG
)

// LogMode controls how and where logs are output.
type LogMode uint8

const (
	DEV     LogMode = iota // Console only, all logs
	RELEASE                // Console + file, no DEBUG
	VERBOSE                // Console + file, all logs
	HIDDEN                 // Console + file, INFO and ERROR only
)

// ANSI color codes for console output.
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

const (
	module     = "[EV3Broker]"
	timeFormat = "2006-01-02 15:04:05"
	bufferSize = 4096
)

// ParseLogMode maps a config/CLI string to a LogMode. Matching is
// case-insensitive; an unrecognized name is an error rather than a
// silent fallback, so a typo in a config file is caught at startup.
func ParseLogMode(s string) (LogMode, error) {
	switch strings.ToLower(s) {
	case "dev":
		return DEV, nil
	case "release":
		return RELEASE, nil
	case "verbose":
		return VERBOSE, nil
	case "hidden":
		return HIDDEN, nil
	default:
		return 0, fmt.Errorf("logger: unknown log mode %q", s)
	}
}

var logTypeStrings = [4]string{
	INFO:    "INFO",
	WARNING: "WARNING",
	ERROR:   "ERROR",
	DEBUG:   "DEBUG",
}

// Logger handles all logging operations: thread safety, output mode
// selection, and file management.
type Logger struct {
	mu      sync.Mutex
	logFile *os.File
	writer  *bufio.Writer
	colors  [4]string
	mode    LogMode
	closed  bool
	sb      strings.Builder
}

// New creates a logger writing to logDir (ignored in DEV mode) at the
// given mode.
func New(logDir string, mode LogMode) (*Logger, error) {
	l := &Logger{
		mode: mode,
		colors: [4]string{
			INFO:    Green,
			WARNING: Yellow,
			ERROR:   Red,
			DEBUG:   Blue,
		},
	}
	l.sb.Grow(256)

	if mode != DEV {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}
		filename := fmt.Sprintf("%s/%s.log", logDir, time.Now().Format("20060102_150405"))
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logger: create log file: %w", err)
		}
		l.logFile = file
		l.writer = bufio.NewWriterSize(file, bufferSize)
	}

	return l, nil
}

// Log writes a log message based on the current mode and log type.
func (l *Logger) Log(consumer string, logType LogType, message string) {
	shouldPrint, shouldSave := shouldLog(l.mode, logType)
	if !shouldPrint && !shouldSave {
		return
	}
	timestamp := time.Now().Format(timeFormat)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if shouldPrint {
		l.printToConsole(timestamp, consumer, logType, message)
	}
	if shouldSave {
		l.saveToFile(timestamp, consumer, logType, message)
	}
}

// LogConflict logs a source-id conflict at ERROR level with a fresh
// random incident id, so repeated conflicts during quarantine can be
// correlated in the log file without the id ever touching the wire.
func (l *Logger) LogConflict(consumer, detail string) string {
	id := uuid.New().String()
	l.Log(consumer, ERROR, fmt.Sprintf("source conflict [incident %s]: %s", id, detail))
	return id
}

var logBehavior = [4][4][2]bool{
	// DEV
	{
		INFO:    {true, false},
		WARNING: {true, false},
		ERROR:   {true, false},
		DEBUG:   {true, false},
	},
	// RELEASE
	{
		INFO:    {true, true},
		WARNING: {true, true},
		ERROR:   {true, true},
		DEBUG:   {false, false},
	},
	// VERBOSE
	{
		INFO:    {true, true},
		WARNING: {true, true},
		ERROR:   {true, true},
		DEBUG:   {true, true},
	},
	// HIDDEN
	{
		INFO:    {true, true},
		WARNING: {false, false},
		ERROR:   {true, true},
		DEBUG:   {false, false},
	},
}

func shouldLog(mode LogMode, logType LogType) (shouldPrint, shouldSave bool) {
	if mode >= 4 || logType >= 4 {
		return false, false
	}
	behavior := logBehavior[mode][logType]
	return behavior[0], behavior[1]
}

func (l *Logger) printToConsole(timestamp, consumer string, logType LogType, message string) {
	l.sb.Reset()
	l.sb.WriteByte('[')
	l.sb.WriteString(l.colors[logType])
	l.sb.WriteString(logTypeStrings[logType])
	l.sb.WriteString(Reset)
	l.sb.WriteString("] [")
	l.sb.WriteString(timestamp)
	l.sb.WriteString("] ")
	l.sb.WriteString(module)
	l.sb.WriteString(" [")
	l.sb.WriteString(consumer)
	l.sb.WriteString("] ")
	l.sb.WriteString(message)
	l.sb.WriteByte('\n')
	fmt.Print(l.sb.String())
}

func (l *Logger) saveToFile(timestamp, consumer string, logType LogType, message string) {
	if l.writer == nil {
		return
	}
	l.sb.Reset()
	l.sb.WriteByte('[')
	l.sb.WriteString(logTypeStrings[logType])
	l.sb.WriteString("] [")
	l.sb.WriteString(timestamp)
	l.sb.WriteString("] ")
	l.sb.WriteString(module)
	l.sb.WriteString(" [")
	l.sb.WriteString(consumer)
	l.sb.WriteString("] ")
	l.sb.WriteString(message)
	l.sb.WriteByte('\n')

	if _, err := l.writer.WriteString(l.sb.String()); err != nil {
		fmt.Printf("%s[ERROR]%s logger: write failed: %v\n", Red, Reset, err)
	}
}

// Flush forces any buffered log data to be written to disk.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		return l.writer.Flush()
	}
	return nil
}

// Close flushes and releases the logger's file handle. Safe to call
// more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("logger: flush: %w", err)
		}
	}
	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			return fmt.Errorf("logger: close file: %w", err)
		}
	}
	return nil
}
