package framework

import (
	"log"
	"os"
)

// Logger is the logging capability threaded through agents and the tool loop.
// Printf is always visible; Verbosef only surfaces when verbose output is
// enabled. Components receive a Logger explicitly rather than reaching for a
// package-level singleton.
type Logger interface {
	Printf(format string, args ...interface{})
	Verbosef(format string, args ...interface{})
}

// StderrLogger writes to standard error via the stdlib logger.
type StderrLogger struct {
	Verbose bool
	logger  *log.Logger
}

// NewStderrLogger builds a stderr-backed logger.
func NewStderrLogger(verbose bool) *StderrLogger {
	return &StderrLogger{
		Verbose: verbose,
		logger:  log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Printf logs unconditionally.
func (l *StderrLogger) Printf(format string, args ...interface{}) {
	l.logger.Printf(format, args...)
}

// Verbosef logs only when verbose output is enabled.
func (l *StderrLogger) Verbosef(format string, args ...interface{}) {
	if !l.Verbose {
		return
	}
	l.logger.Printf(format, args...)
}

// NopLogger drops everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Printf(format string, args ...interface{})   {}
func (NopLogger) Verbosef(format string, args ...interface{}) {}

// EnsureLogger substitutes the stderr fallback when no logger was injected.
func EnsureLogger(l Logger) Logger {
	if l != nil {
		return l
	}
	return NewStderrLogger(false)
}
