// Package logging provides the line-oriented logger used by every actor and service.
//
// Host builds are backed by zap; RP2040 builds write plain lines to the console UART.
package logging

// Logger is safe for concurrent use. Output may be dropped under pressure.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// Named returns a child logger whose lines carry name as a prefix.
	Named(name string) Logger
}

type noop struct{}

func (noop) Debugf(string, ...any) {}
func (noop) Infof(string, ...any)  {}
func (noop) Warnf(string, ...any)  {}
func (noop) Errorf(string, ...any) {}
func (n noop) Named(string) Logger { return n }

// Discard returns a Logger that drops everything.
func Discard() Logger { return noop{} }
