// Package pins abstracts the GPIO inputs that digital-input actors watch.
package pins

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// InputPin is a pin that can be read.
type InputPin interface {
	ConfigureInput(pull Pull) error
	Get() bool
	Number() int
}

// IRQPin extends InputPin with interrupts. The handler runs in interrupt context on MCU
// targets: it must not block, allocate, or log.
type IRQPin interface {
	InputPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Factory supplies pins by board GPIO number.
type Factory interface {
	ByNumber(n int) (IRQPin, bool)
}
