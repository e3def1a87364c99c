// Package tlog provides toggleable leveled loggers for securefs.
package tlog

import (
	"log"
	"os"
)

// Logger wraps log.Logger so that individual levels can be switched off.
type Logger struct {
	Enabled bool
	*log.Logger
}

// Printf is a no-op when the level is disabled.
func (l *Logger) Printf(format string, v ...interface{}) {
	if !l.Enabled {
		return
	}
	l.Logger.Printf(format, v...)
}

// Println is a no-op when the level is disabled.
func (l *Logger) Println(v ...interface{}) {
	if !l.Enabled {
		return
	}
	l.Logger.Println(v...)
}

// Debug logs debug messages. Disabled by default, enable with -debug.
var Debug = &Logger{false, log.New(os.Stderr, "DEBUG: ", log.Lmicroseconds)}

// Info logs informational messages.
var Info = &Logger{true, log.New(os.Stderr, "", 0)}

// Warn logs things that do not look right.
var Warn = &Logger{true, log.New(os.Stderr, "WARNING: ", 0)}

// Fatal logs errors we cannot recover from. The caller is expected to
// os.Exit afterwards with the matching exitcode.
var Fatal = &Logger{true, log.New(os.Stderr, "FATAL: ", 0)}
