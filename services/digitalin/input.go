// Package digitalin implements the digital-input side of an actor: it binds a GPIO pin,
// installs the interrupt handler and exposes a latched "triggered" flag to the consumer.
package digitalin

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"actorcode-go/errcode"
	"actorcode-go/logging"
	"actorcode-go/services/digitalin/pins"
	"actorcode-go/services/sched"
	"actorcode-go/x/timex"
)

const (
	sampleTaskStack    = 2048
	sampleTaskPriority = 1
)

// Deps are the platform services an Input needs.
type Deps struct {
	Pins  pins.Factory
	Sched *sched.Scheduler
	Clock clock.Clock
	Log   logging.Logger
}

// Input watches one pin. Triggered/ClearTrigger are safe to call from any goroutine; the
// interrupt handler only touches atomics.
type Input struct {
	pinN int
	deps Deps

	// Written by the ISR, cleared by the consumer.
	triggered atomic.Bool
	edges     atomic.Uint32

	mu     sync.Mutex
	cfg    Config
	pin    pins.IRQPin
	begun  bool
	sample *sched.Task
}

// New returns an unbound input for pin n with default configuration.
func New(n int, deps Deps) *Input {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	return &Input{
		pinN: n,
		deps: deps,
		cfg: Config{
			Mode:       ModeInput,
			Trigger:    TriggerNone,
			TaskName:   "DigitalInput_" + strconv.Itoa(n),
			TaskPeriod: 1000,
		},
	}
}

func (d *Input) Pin() int { return d.pinN }

// Begin claims the pin and installs the interrupt handler for the configured edge.
func (d *Input) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.begun {
		return nil
	}
	if d.deps.Pins == nil {
		return &errcode.E{C: errcode.UnknownPin, Op: "digitalin begin", Msg: "no pin factory"}
	}
	p, ok := d.deps.Pins.ByNumber(d.pinN)
	if !ok {
		return &errcode.E{C: errcode.UnknownPin, Op: "digitalin begin", Msg: strconv.Itoa(d.pinN)}
	}
	d.pin = p
	if err := d.applyLocked(d.cfg); err != nil {
		d.pin = nil
		return err
	}
	d.begun = true
	return nil
}

// SetConfig merges raw JSON into the current configuration and, once begun, reconfigures
// the pin and the sampling task.
func (d *Input) SetConfig(raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, err := merge(d.cfg, raw)
	if err != nil {
		return err
	}
	if d.begun {
		if err := d.applyLocked(next); err != nil {
			return err
		}
	}
	d.cfg = next
	return nil
}

// GetConfig returns the current configuration as JSON.
func (d *Input) GetConfig() (string, error) {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Config returns a copy of the current configuration.
func (d *Input) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// SetDefaults replaces the configuration without touching the pin. Used before Begin to seed
// first-boot values.
func (d *Input) SetDefaults(cfg Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

// Triggered reports whether at least one edge latched since the last clear.
func (d *Input) Triggered() bool { return d.triggered.Load() }

// ClearTrigger resets the latch.
func (d *Input) ClearTrigger() { d.triggered.Store(false) }

// Edges counts every latched edge since boot, including coalesced ones.
func (d *Input) Edges() uint32 { return d.edges.Load() }

// Close removes the interrupt handler and stops the sampling task.
func (d *Input) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopSampleLocked()
	if d.pin == nil {
		return nil
	}
	err := d.pin.ClearIRQ()
	d.begun = false
	return err
}

// isr runs in interrupt context.
func (d *Input) isr() {
	d.triggered.Store(true)
	d.edges.Inc()
}

func (d *Input) applyLocked(cfg Config) error {
	pull, _ := pullFor(cfg.Mode)
	edge, _ := edgeFor(cfg.Trigger)
	if err := d.pin.ConfigureInput(pull); err != nil {
		return &errcode.E{C: errcode.UnknownPin, Op: "digitalin configure", Err: err}
	}
	if edge == pins.EdgeNone {
		_ = d.pin.ClearIRQ()
	} else if err := d.pin.SetIRQ(edge, d.isr); err != nil {
		return &errcode.E{C: errcode.IRQFailed, Op: "digitalin irq", Err: err}
	}
	return d.syncSampleLocked(cfg, edge)
}

func (d *Input) syncSampleLocked(cfg Config, edge pins.Edge) error {
	want := cfg.TaskEnabled && cfg.TaskPeriod > 0 && d.deps.Sched != nil
	if !want {
		d.stopSampleLocked()
		return nil
	}
	cur := d.cfg
	if d.sample != nil && cur.TaskName == cfg.TaskName && cur.TaskPeriod == cfg.TaskPeriod && cur.Trigger == cfg.Trigger {
		return nil
	}
	spec := sched.Spec{Name: cfg.TaskName, StackSize: sampleTaskStack, Priority: sampleTaskPriority}
	period := timex.Ms(cfg.TaskPeriod)
	entry := func(ctx context.Context) { d.sampleLoop(ctx, period, edge) }
	t, err := d.deps.Sched.Replace(d.sample, spec, entry)
	if err != nil {
		return err
	}
	d.sample = t
	return nil
}

func (d *Input) stopSampleLocked() {
	if d.sample != nil {
		_ = d.deps.Sched.Delete(d.sample)
		d.sample = nil
	}
}

// sampleLoop latches level changes matching edge by polling the pin every period.
func (d *Input) sampleLoop(ctx context.Context, period time.Duration, edge pins.Edge) {
	t := d.deps.Clock.Ticker(period)
	defer t.Stop()
	d.mu.Lock()
	p := d.pin
	d.mu.Unlock()
	if p == nil {
		return
	}
	last := p.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now := p.Get()
			if sampledEdge(edge, last, now) {
				d.isr()
			}
			last = now
		}
	}
}

func sampledEdge(edge pins.Edge, last, now bool) bool {
	switch edge {
	case pins.EdgeRising:
		return !last && now
	case pins.EdgeFalling:
		return last && !now
	case pins.EdgeBoth:
		return last != now
	}
	return false
}
