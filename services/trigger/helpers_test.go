package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest/observer"

	"actorcode-go/logging"
	"actorcode-go/services/actor"
	"actorcode-go/services/digitalin/pins"
	"actorcode-go/services/post"
	"actorcode-go/services/sched"
	"actorcode-go/services/storage"
)

// recordingResolver records every dispatch and answers with ok.
type recordingResolver struct {
	mu    sync.Mutex
	calls []actor.Actions
	all   map[string]map[int]string
	ok    bool
}

func newRecorder() *recordingResolver {
	return &recordingResolver{ok: true, all: map[string]map[int]string{
		"heater": {0: "on", 1: "off"},
	}}
}

func (r *recordingResolver) TriggerActions(a actor.Actions) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, a)
	return r.ok
}

func (r *recordingResolver) ListAllActions() map[string]map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.all
}

func (r *recordingResolver) Calls() []actor.Actions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actor.Actions(nil), r.calls...)
}

func (r *recordingResolver) setAll(all map[string]map[int]string) {
	r.mu.Lock()
	r.all = all
	r.mu.Unlock()
}

type fixture struct {
	in    *Interrupt
	pins  *pins.FakeFactory
	sched *sched.Scheduler
	store *storage.Storage
	gate  *post.Gate
	res   *recordingResolver
	logs  *observer.ObservedLogs
}

const testPin = 4

func newFixture(t *testing.T, name string, mods ...func(*Deps)) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log, logs := logging.NewObservedTestLogger(t)
	f := &fixture{
		pins:  pins.NewFakeFactory(),
		sched: sched.New(ctx),
		store: storage.NewMemory(),
		gate:  post.New(),
		res:   newRecorder(),
		logs:  logs,
	}
	f.gate.Pass()
	deps := Deps{
		Pins:     f.pins,
		Sched:    f.sched,
		Store:    f.store,
		POST:     f.gate,
		Log:      log,
		Resolver: f.res,
	}
	for _, m := range mods {
		m(&deps)
	}
	f.in = New(name, testPin, "", deps)
	t.Cleanup(func() { _ = f.in.Close() })
	return f
}

func (f *fixture) begin(t *testing.T) {
	t.Helper()
	if err := f.in.Begin(context.Background()); err != nil {
		t.Fatalf("begin: %v", err)
	}
}

func (f *fixture) pin() *pins.FakePin { return f.pins.Pin(testPin) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// settle gives running workers several poll intervals to act.
func settle() { time.Sleep(10 * triggerPollInterval) }
