package pins

import (
	"sync"
	"time"
)

// FakePin implements IRQPin for host runs and tests. Changing its level fires the installed
// handler synchronously when the edge matches, like an ISR would.
type FakePin struct {
	mu       sync.RWMutex
	number   int
	level    bool
	pull     Pull
	irqEdge  Edge
	irqFunc  func()
	debounce time.Duration
	lastIRQ  time.Time
	failIRQ  error
}

// NewFakePin returns a low pin with the given number.
func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	p.pull = pull
	if pull == PullUp {
		p.level = true
	}
	p.mu.Unlock()
	return nil
}

// Set drives the pin level and fires the IRQ handler if the resulting edge is wanted.
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	edge := edgeFrom(old, level)
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edge)
	deb := p.debounce
	last := p.lastIRQ
	now := time.Now()
	if want && (deb == 0 || now.Sub(last) >= deb) {
		p.lastIRQ = now
		p.mu.Unlock()
		if irq != nil {
			irq()
		}
		return
	}
	p.mu.Unlock()
}

// Pulse drives one full high/low cycle starting from low.
func (p *FakePin) Pulse() {
	p.Set(false)
	p.Set(true)
	p.Set(false)
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

// Pull returns the last configured pull.
func (p *FakePin) Pull() Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

// SetDebounce makes the fake suppress edges closer together than d.
func (p *FakePin) SetDebounce(d time.Duration) {
	p.mu.Lock()
	p.debounce = d
	p.mu.Unlock()
}

// FailIRQ makes subsequent SetIRQ calls return err.
func (p *FakePin) FailIRQ(err error) {
	p.mu.Lock()
	p.failIRQ = err
	p.mu.Unlock()
}

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIRQ != nil {
		return p.failIRQ
	}
	p.irqEdge = edge
	p.irqFunc = handler
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// IRQEdge reports the currently armed edge.
func (p *FakePin) IRQEdge() Edge {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqEdge
}

func edgeFrom(old, new bool) Edge {
	switch {
	case !old && new:
		return EdgeRising
	case old && !new:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

func irqWanted(cfg, seen Edge) bool {
	switch cfg {
	case EdgeBoth:
		return seen == EdgeRising || seen == EdgeFalling
	case EdgeNone:
		return false
	default:
		return cfg == seen
	}
}

// FakeFactory returns stable *FakePin instances per number.
type FakeFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakeFactory() *FakeFactory { return &FakeFactory{pins: make(map[int]*FakePin)} }

func (f *FakeFactory) ByNumber(n int) (IRQPin, bool) {
	if n < 0 {
		return nil, false
	}
	return f.Pin(n), true
}

// Pin exposes the underlying *FakePin so tests and the simulator can drive edges.
func (f *FakeFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}
