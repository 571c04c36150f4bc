package core

import (
	"log"
	"os"
)

// Logger is the minimal logging surface the core needs. It mirrors the
// channel-tagged Log_ErrorPrintf/Log_WarningPrintf/Log_DebugPrintf calls of
// the original source, adapted to a small interface so tests can inject a
// silent implementation.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// stdLogger wraps the standard library logger with a fixed channel prefix,
// e.g. "Bus" or "Timers", the way Log_SetChannel tags a translation unit.
type stdLogger struct {
	l *log.Logger
}

// NewDefaultLogger returns a Logger that writes to stderr, prefixed with
// the given channel name.
func NewDefaultLogger(channel string) Logger {
	return &stdLogger{l: log.New(os.Stderr, channel+": ", log.LstdFlags)}
}

func (s *stdLogger) Errorf(format string, args ...any) { s.l.Printf("ERROR "+format, args...) }
func (s *stdLogger) Warnf(format string, args ...any)  { s.l.Printf("WARN "+format, args...) }
func (s *stdLogger) Debugf(format string, args ...any) { s.l.Printf("DEBUG "+format, args...) }

// nullLogger discards everything. Used by tests and by callers that have
// not wired a real logger.
type nullLogger struct{}

func (nullLogger) Errorf(string, ...any) {}
func (nullLogger) Warnf(string, ...any)  {}
func (nullLogger) Debugf(string, ...any) {}
