//go:build !rp2040

package main

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"actorcode-go/bus"
	"actorcode-go/logging"
	"actorcode-go/services/actor"
	"actorcode-go/services/actor/logactor"
	"actorcode-go/services/config"
	"actorcode-go/services/digitalin/pins"
	"actorcode-go/services/heartbeat"
	"actorcode-go/services/post"
	"actorcode-go/services/sched"
	"actorcode-go/services/storage"
	"actorcode-go/services/trigger"
)

// system is the simulated firmware: bus, registry, actors and services.
type system struct {
	log      logging.Logger
	clock    clock.Clock
	manifest *Manifest
	watch    bool

	bus      *bus.Bus
	pins     *pins.FakeFactory
	sched    *sched.Scheduler
	store    *storage.Storage
	gate     *post.Gate
	reg      *actor.Registry
	actors   *actor.Service
	cfg      *config.ConfigService
	triggers []*trigger.Interrupt
	logs     []*logactor.Actor

	// Serve loops of the bus services, subscribed during boot.
	serveActors func(context.Context) error
	serveConfig func(context.Context) error
}

type bootOptions struct {
	Manifest *Manifest
	Store    *storage.Storage
	Log      logging.Logger
	Clock    clock.Clock
	// Watch enables the settings directory watcher; the store must be host backed.
	Watch bool
}

// boot constructs and begins every actor. Actors that fail to begin are logged and left
// registered so their config can still be fixed over the bus.
func boot(ctx context.Context, o bootOptions) (*system, error) {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	s := &system{
		log:      o.Log,
		clock:    o.Clock,
		manifest: o.Manifest,
		watch:    o.Watch,
		bus:      bus.NewBus(16),
		pins:     pins.NewFakeFactory(),
		sched:    sched.New(ctx),
		store:    o.Store,
		gate:     post.New(),
	}
	s.reg = actor.NewRegistry(o.Log)
	s.actors = actor.NewService(s.reg, s.bus.NewConnection("actors"), o.Log, o.Clock)
	s.cfg = config.NewConfigService(s.bus.NewConnection("config"), s.reg, s.store, o.Log)
	s.cfg.OnApplied = s.actors.PublishInfo

	if written, err := config.Seed(s.store, o.Manifest.Device); err != nil {
		return nil, err
	} else if len(written) > 0 {
		s.log.Infof("seeded factory settings %v", written)
	}

	for _, l := range o.Manifest.LogActors {
		a := logactor.New(l.Name, o.Log)
		if err := s.reg.Register(a); err != nil {
			return nil, err
		}
		s.logs = append(s.logs, a)
	}
	for _, ts := range o.Manifest.Triggers {
		in := trigger.New(ts.Name, ts.Pin, ts.ConfigFile, trigger.Deps{
			Pins:     s.pins,
			Sched:    s.sched,
			Store:    s.store,
			Registry: s.reg,
			POST:     s.gate,
			Clock:    o.Clock,
			Log:      o.Log,
		})
		if err := s.reg.Register(in); err != nil {
			return nil, err
		}
		s.triggers = append(s.triggers, in)
	}
	for _, in := range s.triggers {
		if err := in.Begin(ctx); err != nil {
			s.log.Errorf("%s failed to start: %v", in.Name(), err)
			continue
		}
		s.log.Infof("%s started on pin %d as %s", in.Name(), in.Input().Pin(), in.TaskName())
	}
	// Subscribe before boot returns; requests published from here on are queued.
	s.serveActors = s.actors.Start()
	s.serveConfig = s.cfg.Start()
	return s, nil
}

// run serves the bus until ctx is done. POST passes after the manifest's delay.
func (s *system) run(ctx context.Context, stdin io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)
	hb := &heartbeat.Service{Tasks: s.sched.Names, Clock: s.clock, Log: s.log}
	if err := hb.Start(ctx, s.bus.NewConnection("heartbeat")); err != nil {
		return err
	}
	g.Go(func() error { return s.serveActors(ctx) })
	g.Go(func() error { return s.serveConfig(ctx) })
	if s.watch {
		g.Go(func() error { return s.cfg.Watch(ctx) })
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-time.After(s.manifest.POSTDelay):
			s.gate.Pass()
			s.log.Infof("POST passed")
		}
		return nil
	})
	if stdin != nil {
		// Not part of the group: a blocked read must not hold up shutdown.
		go s.simulate(ctx, stdin)
	}
	err := g.Wait()
	return multierr.Append(err, s.close())
}

func (s *system) close() error {
	var err error
	for _, in := range s.triggers {
		err = multierr.Append(err, in.Close())
	}
	return err
}

// simulate drives fake pins from text commands:
//
//	pulse <pin>        one low-high-low cycle
//	set <pin> <0|1>    drive a level
func (s *system) simulate(ctx context.Context, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := s.command(sc.Text()); err != nil {
			s.log.Warnf("%v", err)
		}
	}
}

func (s *system) command(line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	want := map[string]int{"pulse": 2, "set": 3}[f[0]]
	if want == 0 || len(f) != want {
		return errUsage
	}
	n, err := strconv.Atoi(f[1])
	if err != nil || n < 0 {
		return errUsage
	}
	pin := s.pins.Pin(n)
	if f[0] == "pulse" {
		pin.Pulse()
	} else {
		pin.Set(f[2] == "1")
	}
	return nil
}
