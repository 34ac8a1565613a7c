// Package logging provides the leveled logging used by the chunk engine.
package logging

import (
	"log"
	"sync/atomic"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = int32(iota)
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

var minLevel = WarnLevel

// SetLevel adjusts the minimum level emitted by Logf. Messages below the
// given level are discarded.
func SetLevel(level int32) {
	atomic.StoreInt32(&minLevel, level)
}

// Logf writes a message through the standard logger, tagged with the given
// level, when the level passes the configured threshold. Safe for concurrent
// use.
func Logf(level int32, format string, args ...interface{}) {
	if level < atomic.LoadInt32(&minLevel) {
		return
	}
	log.Printf("["+LogLevelToString(level)+"] "+format, args...)
}

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(level int32) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}
