package trigger

import (
	"errors"
	"os"
	"testing"

	"go.viam.com/test"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"

	"actorcode-go/errcode"
	"actorcode-go/services/actor"
	"actorcode-go/services/actor/logactor"
	"actorcode-go/services/storage"
)

func options(t *testing.T, in *Interrupt) []any {
	t.Helper()
	cfg, err := in.GetConfig()
	test.That(t, err, test.ShouldBeNil)
	return decode(t, cfg)["Action"].(map[string]any)["options"].([]any)
}

func TestGetConfigHidesInternalFields(t *testing.T) {
	f := newFixture(t, "trig1")
	f.begin(t)
	raw := `{"id":7,"taskName":"x","taskPeriod":50,"taskEnabled":true,"mode":"INPUT_PULLUP"}`
	test.That(t, f.in.SetConfig(raw, false), test.ShouldBeNil)

	cfg, err := f.in.GetConfig()
	test.That(t, err, test.ShouldBeNil)
	doc := decode(t, cfg)
	for _, k := range []string{"id", "taskName", "taskPeriod", "taskEnabled"} {
		test.That(t, doc, test.ShouldNotContainKey, k)
	}
	test.That(t, doc["mode"], test.ShouldEqual, "INPUT_PULLUP")
	test.That(t, doc, test.ShouldContainKey, "trigger")
	// The legacy sampling task is still configured underneath.
	test.That(t, f.in.Input().Config().TaskPeriod, test.ShouldEqual, 50)
}

func TestOptionsExcludeSelfAndAreOrdered(t *testing.T) {
	f := newFixture(t, "lamp")
	f.res.setAll(map[string]map[int]string{
		"lamp":   {0: "triggeraction"},
		"heater": {1: "off", 0: "on"},
		"fan":    {0: "spin"},
	})
	test.That(t, options(t, f.in), test.ShouldResemble, []any{"fan:spin", "heater:on", "heater:off"})

	// Options follow the current name.
	test.That(t, f.in.SetConfig(`{"Name":"fan"}`, false), test.ShouldBeNil)
	test.That(t, options(t, f.in), test.ShouldResemble, []any{"heater:on", "heater:off", "lamp:triggeraction"})
}

func TestOptionsSentinels(t *testing.T) {
	f := newFixture(t, "lamp")
	f.res.setAll(map[string]map[int]string{})
	test.That(t, options(t, f.in), test.ShouldResemble, []any{""})

	f.res.setAll(map[string]map[int]string{"lamp": {0: "triggeraction"}})
	test.That(t, options(t, f.in), test.ShouldBeEmpty)
}

func TestActionSplitsOnFirstColon(t *testing.T) {
	f := newFixture(t, "lamp")
	f.begin(t)
	test.That(t, f.in.SetConfig(`{"Action":{"current":"a:b:c"},"Payload":"p"}`, false), test.ShouldBeNil)
	f.in.ReceiveAction(0, "p")
	test.That(t, f.res.Calls()[0], test.ShouldResemble, actor.Actions{"a": {"b:c": "p"}})

	test.That(t, f.in.SetConfig(`{"Action":{"current":":"}}`, false), test.ShouldBeNil)
	f.in.ReceiveAction(0, "q")
	test.That(t, f.res.Calls()[1], test.ShouldResemble, actor.Actions{"": {"": "q"}})
}

func TestActionWithoutColonKeepsTarget(t *testing.T) {
	f := newFixture(t, "lamp")
	f.begin(t)
	test.That(t, f.in.SetConfig(`{"Action":{"current":"heater:on"}}`, false), test.ShouldBeNil)
	test.That(t, f.in.SetConfig(`{"Action":{"current":"heater"}}`, false), test.ShouldBeNil)

	cfg, err := f.in.GetConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decode(t, cfg)["Action"].(map[string]any)["current"], test.ShouldEqual, "heater")

	f.in.ReceiveAction(0, "x")
	test.That(t, f.res.Calls()[0], test.ShouldResemble, actor.Actions{"heater": {"on": "x"}})
}

func TestSetConfigRejectsBadInput(t *testing.T) {
	f := newFixture(t, "lamp")
	f.begin(t)

	err := f.in.SetConfig(`{"Name":"other"`, true)
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.BaseConfigFailed)
	test.That(t, errors.Is(err, errcode.ParseFailed), test.ShouldBeTrue)

	err = f.in.SetConfig(`{"Name":"other","mode":"SIDEWAYS"}`, true)
	test.That(t, errors.Is(err, errcode.UnknownMode), test.ShouldBeTrue)

	// Nothing was applied or written.
	test.That(t, f.in.Name(), test.ShouldEqual, "lamp")
	saved, rerr := f.store.ReadFile(f.in.ConfigPath())
	test.That(t, rerr, test.ShouldBeNil)
	test.That(t, decode(t, saved)["Name"], test.ShouldEqual, "lamp")
}

func TestSaveWritesInputVerbatim(t *testing.T) {
	f := newFixture(t, "lamp")
	f.begin(t)
	raw := "{ \"Payload\" : \"warm\",\n  \"Action\": {\"current\": \"heater:on\"} }"
	test.That(t, f.in.SetConfig(raw, true), test.ShouldBeNil)
	saved, err := f.store.ReadFile(f.in.ConfigPath())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved, test.ShouldEqual, raw)

	// save=false leaves the file alone.
	test.That(t, f.in.SetConfig(`{"Payload":"cold"}`, false), test.ShouldBeNil)
	saved, _ = f.store.ReadFile(f.in.ConfigPath())
	test.That(t, saved, test.ShouldEqual, raw)
}

// readOnlyFS refuses every file open for writing.
type readOnlyFS struct{ billy.Filesystem }

func (readOnlyFS) OpenFile(string, int, os.FileMode) (billy.File, error) {
	return nil, os.ErrPermission
}

func TestPersistFailureKeepsInMemoryChanges(t *testing.T) {
	f := newFixture(t, "lamp")
	f.in.deps.Store = storage.New(readOnlyFS{memfs.New()})

	err := f.in.SetConfig(`{"Payload":"warm","Action":{"current":"heater:on"}}`, true)
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.PersistFailed)
	test.That(t, errors.Is(err, os.ErrPermission), test.ShouldBeTrue)

	cfg, gerr := f.in.GetConfig()
	test.That(t, gerr, test.ShouldBeNil)
	test.That(t, decode(t, cfg)["Payload"], test.ShouldEqual, "warm")
}

func TestLooseValuesAreCoerced(t *testing.T) {
	f := newFixture(t, "lamp")
	test.That(t, f.in.SetConfig(`{"Payload":42,"Action":{"current":null}}`, false), test.ShouldBeNil)
	cfg, err := f.in.GetConfig()
	test.That(t, err, test.ShouldBeNil)
	doc := decode(t, cfg)
	test.That(t, doc["Payload"], test.ShouldEqual, "42")
	test.That(t, doc["Action"].(map[string]any)["current"], test.ShouldEqual, "")
}

func TestRegistryBackedTrigger(t *testing.T) {
	f := newFixture(t, "lamp", func(d *Deps) { d.Resolver = nil })
	reg := actor.NewRegistry(nil)
	f.in = New("lamp", testPin, "", Deps{
		Pins: f.pins, Sched: f.sched, Store: f.store, POST: f.gate, Registry: reg,
	})
	console := logactor.New("console", nil)
	test.That(t, reg.Register(f.in), test.ShouldBeNil)
	test.That(t, reg.Register(console), test.ShouldBeNil)
	f.begin(t)

	test.That(t, options(t, f.in), test.ShouldResemble, []any{"console:print"})

	test.That(t, f.in.SetConfig(`{"trigger":"RISING","Action":{"current":"console:print"},"Payload":"ding"}`, true), test.ShouldBeNil)
	f.pin().Pulse()
	waitFor(t, "print", func() bool { return len(console.Received()) == 1 })
	test.That(t, console.Received(), test.ShouldResemble, []string{"ding"})

	// Other actors reach the trigger by its current name.
	test.That(t, f.in.SetConfig(`{"Name":"bell"}`, false), test.ShouldBeNil)
	body, err := reg.Dispatch("bell", ActionTriggerAction, "dong")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, body, test.ShouldEqual, `{"success": true}`)
	test.That(t, console.Received(), test.ShouldResemble, []string{"ding", "dong"})

	_, err = reg.Dispatch("lamp", ActionTriggerAction, "")
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.UnknownActor)
}

func TestSelfTargetDoesNotRecurse(t *testing.T) {
	reg := actor.NewRegistry(nil)
	f := newFixture(t, "lamp", func(d *Deps) { d.Resolver = nil; d.Registry = reg })
	test.That(t, reg.Register(f.in), test.ShouldBeNil)
	f.begin(t)

	test.That(t, f.in.SetConfig(`{"Action":{"current":"lamp:triggeraction"}}`, false), test.ShouldBeNil)
	body, err := reg.Dispatch("lamp", ActionTriggerAction, "x")
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.ActionFailed)
	test.That(t, body, test.ShouldEqual, `{"success": false}`)

	// The guard follows renames of the trigger and of its target.
	test.That(t, f.in.SetConfig(`{"Name":"bell","Action":{"current":"bell:triggeraction"}}`, false), test.ShouldBeNil)
	ok, body := f.in.ReceiveAction(0, "y")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, body, test.ShouldEqual, `{"success": false}`)
}
