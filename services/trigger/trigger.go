// Package trigger implements the interrupt action trigger: an actor that watches one digital
// input and, on each latched edge, invokes a configured action on another actor.
//
// The pin interrupt only sets a latch. A worker task named "Trig_<name>" polls the latch
// every triggerPollInterval and performs the dispatch in task context.
package trigger

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"actorcode-go/errcode"
	"actorcode-go/logging"
	"actorcode-go/services/actor"
	"actorcode-go/services/digitalin"
	"actorcode-go/services/digitalin/pins"
	"actorcode-go/services/post"
	"actorcode-go/services/sched"
	"actorcode-go/services/storage"
	"actorcode-go/types"
)

const (
	// DefaultConfigFile is used when no config file name is given.
	DefaultConfigFile = "PeriodicActionTrigger.json"

	ActorType           = "trigger"
	ActionTriggerAction = "triggeraction"
	opTriggerAction     = 0
)

// Deps are the collaborators an Interrupt is wired to at construction.
type Deps struct {
	Pins     pins.Factory
	Sched    *sched.Scheduler
	Store    *storage.Storage
	Registry *actor.Registry
	POST     *post.Gate
	Clock    clock.Clock
	Log      logging.Logger

	// Resolver overrides the registry-backed action trigger. Optional.
	Resolver actor.Resolver
}

// Interrupt is one interrupt action trigger.
type Interrupt struct {
	configPath string
	deps       Deps
	log        logging.Logger
	input      *digitalin.Input
	helper     *actor.ActionTrigger
	resolver   actor.Resolver

	// mu guards the fields below. Readers never see a torn name or target.
	mu         sync.RWMutex
	desc       types.Description
	action     string // "<actor>:<action>" as last configured
	actorName  string
	actionName string
	payload    string

	// task is only read or written inside renameCS.
	renameCS sched.CriticalSection
	task     *sched.Task

	fire sync.Mutex // held by a worker while it consumes the latch

	life    sync.Mutex
	started atomic.Bool
}

// New returns an unstarted trigger on pin whose settings live in
// /settings/act/<configFile>.
func New(name string, pin int, configFile string, deps Deps) *Interrupt {
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	in := &Interrupt{
		configPath: storage.ActorPath(configFile),
		deps:       deps,
		log:        deps.Log.Named("trigger"),
		helper:     actor.NewActionTrigger(deps.Registry),
		desc:       types.Description{Name: name},
	}
	in.resolver = deps.Resolver
	if in.resolver == nil {
		in.resolver = in.helper
	}
	in.input = digitalin.New(pin, digitalin.Deps{
		Pins:  deps.Pins,
		Sched: deps.Sched,
		Clock: deps.Clock,
		Log:   deps.Log,
	})
	return in
}

// Description implements actor.Actor.
func (in *Interrupt) Description() types.Description {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.desc.Clone()
}

// Name returns the current actor name.
func (in *Interrupt) Name() string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.desc.Name
}

func (in *Interrupt) ConfigPath() string { return in.configPath }

// Input exposes the digital-input collaborator.
func (in *Interrupt) Input() *digitalin.Input { return in.input }

// Started reports whether Begin has completed.
func (in *Interrupt) Started() bool { return in.started.Load() }

// Begin binds the pin, loads or seeds the persisted config and starts the worker. On any
// failure the trigger stays unstarted.
func (in *Interrupt) Begin(ctx context.Context) error {
	in.life.Lock()
	defer in.life.Unlock()
	if in.started.Load() {
		return &errcode.E{C: errcode.AlreadyStarted, Op: "trigger begin", Msg: in.Name()}
	}

	in.mu.Lock()
	in.desc.Type = ActorType
	in.desc.Actions = map[string]int{ActionTriggerAction: opTriggerAction}
	in.mu.Unlock()
	in.helper.SetEnabled(true)

	err := in.begin(ctx)
	if err != nil {
		in.log.Errorf("%s: begin failed: %v", in.Name(), err)
		in.helper.SetEnabled(false)
		return multierr.Append(err, in.input.Close())
	}
	in.started.Store(true)
	return nil
}

func (in *Interrupt) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if in.deps.Store == nil {
		return &errcode.E{C: errcode.PersistFailed, Op: "trigger begin", Msg: "no storage"}
	}
	if err := in.input.Begin(); err != nil {
		return &errcode.E{C: errcode.BaseConfigFailed, Op: "trigger begin", Err: err}
	}

	if !in.deps.Store.Exists(in.configPath) {
		in.seedDefaults()
		cfg, err := in.GetConfig()
		if err != nil {
			return err
		}
		if err := in.SetConfig(cfg, true); err != nil {
			return err
		}
	} else {
		data, err := in.deps.Store.ReadFile(in.configPath)
		if err != nil {
			return &errcode.E{C: errcode.PersistFailed, Op: "trigger load", Err: err}
		}
		if err := in.SetConfig(data, false); err != nil {
			return err
		}
	}

	if err := in.startWorker(); err != nil {
		in.log.Errorf("Failed to start trigger processor thread")
		return err
	}
	return nil
}

func (in *Interrupt) seedDefaults() {
	cur := in.input.Config()
	cur.ID = 0
	cur.Mode = digitalin.ModeInput
	cur.TaskEnabled = false
	cur.Trigger = digitalin.TriggerNone
	in.input.SetDefaults(cur)

	in.mu.Lock()
	in.action, in.actorName, in.actionName, in.payload = "", "", "", ""
	in.mu.Unlock()
}

// Close stops the worker and releases the pin. The trigger may be started again.
func (in *Interrupt) Close() error {
	in.life.Lock()
	defer in.life.Unlock()
	var err error
	in.renameCS.Enter()
	if in.task != nil {
		err = multierr.Append(err, in.deps.Sched.Delete(in.task))
		in.task = nil
	}
	in.renameCS.Exit()
	err = multierr.Append(err, in.input.Close())
	in.helper.SetEnabled(false)
	in.started.Store(false)
	return err
}
