// Package logging provides the leveled logger shared by the world, the solver and the
// character controller.
package logging

import (
	"fmt"
	"io"
	"log"
)

// Level orders log records by severity.
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
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

type Logger interface {
	// Enabled reports whether records of the given level are written, so callers can
	// skip building expensive arguments.
	Enabled(level Level) bool
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger writes records at or above its minimum level through a standard log.Logger.
// The level is fixed at construction, so a StdLogger is safe for concurrent use.
type StdLogger struct {
	min    Level
	prefix string
	out    *log.Logger
}

// New builds a StdLogger writing to w. An empty component drops the bracketed prefix.
func New(w io.Writer, component string, min Level) *StdLogger {
	return &StdLogger{
		min:    min,
		prefix: component,
		out:    log.New(w, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *StdLogger) Enabled(level Level) bool {
	return level >= l.min
}

func (l *StdLogger) write(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		l.out.Printf("[%s] %s: %s", l.prefix, level, msg)
		return
	}
	l.out.Printf("%s: %s", level, msg)
}

func (l *StdLogger) Debugf(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *StdLogger) Infof(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *StdLogger) Warnf(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *StdLogger) Errorf(format string, args ...any) { l.write(LevelError, format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Enabled(Level) bool    { return false }
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
