package earnapp

import (
	"log"

	"github.com/google/uuid"
)

// Logger receives one line per upstream request and per notable state change.
type Logger interface {
	Log(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Log(string, ...any) {}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return nopLogger{}
}

// StdLogger adapts a *log.Logger.
type StdLogger struct {
	Logger *log.Logger
}

func (l *StdLogger) Log(format string, args ...any) {
	l.Logger.Printf(format, args...)
}

// prefixLogger tags every line with a short id.
type prefixLogger struct {
	id   string
	base Logger
}

func (p *prefixLogger) Log(format string, args ...any) {
	p.base.Log("[%s] "+format, append([]any{p.id}, args...)...)
}

func generateSessionID() string {
	return uuid.New().String()[:8]
}
