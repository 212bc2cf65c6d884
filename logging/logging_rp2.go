//go:build rp2040

package logging

import (
	"fmt"
	"machine"
	"sync"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

var (
	consoleMu sync.Mutex
	console   *uartx.UART
)

// UseUART routes all loggers to the given UART, configured at baud on tx/rx.
// Lines logged before this call go to println.
func UseUART(u *uartx.UART, baud uint32, tx, rx machine.Pin) error {
	if err := u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx}); err != nil {
		return err
	}
	consoleMu.Lock()
	console = u
	consoleMu.Unlock()
	return nil
}

type uartLogger struct {
	prefix string
	debug  bool
}

// NewLogger returns a logger that prefixes each line with "[name]".
func NewLogger(name string, debug bool) Logger {
	return &uartLogger{prefix: "[" + name + "] ", debug: debug}
}

func (l *uartLogger) Debugf(f string, a ...any) {
	if l.debug {
		l.line("DEBUG ", f, a)
	}
}
func (l *uartLogger) Infof(f string, a ...any)  { l.line("", f, a) }
func (l *uartLogger) Warnf(f string, a ...any)  { l.line("WARN ", f, a) }
func (l *uartLogger) Errorf(f string, a ...any) { l.line("ERROR ", f, a) }

func (l *uartLogger) Named(name string) Logger {
	return &uartLogger{prefix: l.prefix + "[" + name + "] ", debug: l.debug}
}

func (l *uartLogger) line(level, f string, a []any) {
	s := level + l.prefix + fmt.Sprintf(f, a...)
	consoleMu.Lock()
	defer consoleMu.Unlock()
	if console == nil {
		println(s)
		return
	}
	_, _ = console.Write([]byte(s + "\r\n"))
}
