// Package logactor is a minimal actor that logs the payloads it receives. It is the default
// dispatch target on the host simulator.
package logactor

import (
	"sync"

	"actorcode-go/logging"
	"actorcode-go/types"
)

const (
	ActionPrint = "print"
	opPrint     = 0
)

type Actor struct {
	name string
	log  logging.Logger

	mu       sync.Mutex
	received []string
}

func New(name string, log logging.Logger) *Actor {
	if log == nil {
		log = logging.Discard()
	}
	return &Actor{name: name, log: log.Named(name)}
}

func (a *Actor) Description() types.Description {
	return types.Description{
		Name:    a.name,
		Type:    "log",
		Actions: map[string]int{ActionPrint: opPrint},
	}
}

func (a *Actor) ReceiveAction(opcode int, payload string) (bool, string) {
	if opcode != opPrint {
		return true, `{"success": false}`
	}
	a.mu.Lock()
	a.received = append(a.received, payload)
	a.mu.Unlock()
	a.log.Infof("%s", payload)
	return true, `{"success": true}`
}

// Received returns every payload printed so far.
func (a *Actor) Received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.received...)
}
