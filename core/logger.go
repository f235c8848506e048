package core

import (
	"fmt"
	"log"
	"os"
)

// LogLevel represents the logging level for the trace emitted by the
// engines below. It has no bearing on the correctness of any operation;
// it only controls how much of the deterministic trace reaches stdout.
type LogLevel int

const (
	// LogLevelNone disables all logging.
	LogLevelNone LogLevel = iota
	// LogLevelError enables error logging.
	LogLevelError
	// LogLevelInfo enables info and error logging.
	LogLevelInfo
	// LogLevelDebug enables all logging, including per-access trace
	// events (splits, coalesces, evictions, faults).
	LogLevelDebug
)

var currentLogLevel = LogLevelInfo

var (
	debugLogger *log.Logger
	infoLogger  *log.Logger
	errorLogger *log.Logger
)

func init() {
	debugLogger = log.New(os.Stdout, "[DEBUG] ", log.Ldate|log.Ltime)
	infoLogger = log.New(os.Stdout, "[INFO] ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "[ERROR] ", log.Ldate|log.Ltime)
}

// SetLogLevel changes the global trace verbosity. Intended to be called
// once at session start by whichever driver embeds this package.
func SetLogLevel(level LogLevel) {
	currentLogLevel = level
}

// Debug logs an engine-internal trace event.
func Debug(format string, v ...interface{}) {
	if currentLogLevel >= LogLevelDebug {
		debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info logs a session-level event (init, mode lock, process creation).
func Info(format string, v ...interface{}) {
	if currentLogLevel >= LogLevelInfo {
		infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Error logs a reported, non-fatal error (allocation failure, unknown id).
func Error(format string, v ...interface{}) {
	if currentLogLevel >= LogLevelError {
		errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}
