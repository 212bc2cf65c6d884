package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"go.viam.com/test"

	"actorcode-go/errcode"
	"actorcode-go/services/actor"
	"actorcode-go/services/digitalin/pins"
	"actorcode-go/services/sched"
	"actorcode-go/services/storage"
)

func decode(t *testing.T, js string) map[string]any {
	t.Helper()
	m := map[string]any{}
	test.That(t, json.Unmarshal([]byte(js), &m), test.ShouldBeNil)
	return m
}

func TestColdStartWritesDefaults(t *testing.T) {
	f := newFixture(t, "trig1")
	test.That(t, f.sched.Count("Trig_trig1"), test.ShouldEqual, 0)
	test.That(t, f.in.TaskName(), test.ShouldBeEmpty)

	f.begin(t)

	path := storage.ActorPath(DefaultConfigFile)
	test.That(t, f.in.ConfigPath(), test.ShouldEqual, "/settings/act/PeriodicActionTrigger.json")
	test.That(t, f.store.Exists(path), test.ShouldBeTrue)
	saved, err := f.store.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	file := decode(t, saved)
	test.That(t, file["Name"], test.ShouldEqual, "trig1")
	test.That(t, file["mode"], test.ShouldEqual, "INPUT")
	test.That(t, file["trigger"], test.ShouldEqual, "NONE")
	test.That(t, file["Payload"], test.ShouldEqual, "")

	cfg, err := f.in.GetConfig()
	test.That(t, err, test.ShouldBeNil)
	doc := decode(t, cfg)
	test.That(t, doc["Name"], test.ShouldEqual, "trig1")
	test.That(t, doc["Payload"], test.ShouldEqual, "")
	test.That(t, doc["Action"].(map[string]any)["current"], test.ShouldEqual, "")

	test.That(t, f.in.TaskName(), test.ShouldEqual, "Trig_trig1")
	test.That(t, f.sched.Count("Trig_trig1"), test.ShouldEqual, 1)
	test.That(t, f.in.Started(), test.ShouldBeTrue)

	d := f.in.Description()
	test.That(t, d.Type, test.ShouldEqual, "trigger")
	test.That(t, d.Actions, test.ShouldResemble, map[string]int{"triggeraction": 0})
}

func TestBeginLoadsPersistedConfig(t *testing.T) {
	f := newFixture(t, "trig1")
	raw := `{"Name":"porch", "trigger":"FALLING", "Action":{"current":"heater:off"}, "Payload":"cold"}`
	test.That(t, f.store.WriteFile(f.in.ConfigPath(), raw), test.ShouldBeNil)

	f.begin(t)
	test.That(t, f.in.Name(), test.ShouldEqual, "porch")
	test.That(t, f.in.TaskName(), test.ShouldEqual, "Trig_porch")
	test.That(t, f.pin().IRQEdge(), test.ShouldEqual, pins.EdgeFalling)

	saved, err := f.store.ReadFile(f.in.ConfigPath())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved, test.ShouldEqual, raw)

	ok, _ := f.in.ReceiveAction(0, "x")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, f.res.Calls(), test.ShouldResemble, []actor.Actions{{"heater": {"off": "x"}}})
}

func TestBeginTwiceFails(t *testing.T) {
	f := newFixture(t, "trig1")
	f.begin(t)
	err := f.in.Begin(context.Background())
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.AlreadyStarted)
	test.That(t, f.sched.Count("Trig_trig1"), test.ShouldEqual, 1)
}

func TestBeginFailsWithoutPin(t *testing.T) {
	f := newFixture(t, "trig1")
	f.in = New("trig1", -1, "", f.in.deps)
	err := f.in.Begin(context.Background())
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.BaseConfigFailed)
	test.That(t, f.in.Started(), test.ShouldBeFalse)
	test.That(t, f.store.Exists(f.in.ConfigPath()), test.ShouldBeFalse)
}

func TestBeginFailsOnBadPersistedConfig(t *testing.T) {
	f := newFixture(t, "trig1")
	test.That(t, f.store.WriteFile(f.in.ConfigPath(), `{"mode":`), test.ShouldBeNil)
	err := f.in.Begin(context.Background())
	test.That(t, errors.Is(err, errcode.ParseFailed), test.ShouldBeTrue)
	test.That(t, f.in.Started(), test.ShouldBeFalse)
	test.That(t, f.sched.Names(), test.ShouldBeEmpty)
}

func TestBeginFailsWhenWorkerCannotStart(t *testing.T) {
	f := newFixture(t, "trig1")
	f.sched.SetMaxTasks(1)
	_, err := f.sched.Spawn(sched.Spec{Name: "hog"}, func(ctx context.Context) { <-ctx.Done() })
	test.That(t, err, test.ShouldBeNil)

	test.That(t, f.store.WriteFile(f.in.ConfigPath(), `{"trigger":"RISING"}`), test.ShouldBeNil)
	err = f.in.Begin(context.Background())
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.SpawnFailed)
	test.That(t, f.in.Started(), test.ShouldBeFalse)
	test.That(t, f.in.TaskName(), test.ShouldBeEmpty)
	// The pin is released again.
	test.That(t, f.pin().IRQEdge(), test.ShouldEqual, pins.EdgeNone)

	f.sched.SetMaxTasks(0)
	f.begin(t)
	test.That(t, f.in.TaskName(), test.ShouldEqual, "Trig_trig1")
}

func TestRenameReplacesWorker(t *testing.T) {
	f := newFixture(t, "trig1")
	f.begin(t)

	test.That(t, f.in.SetConfig(`{"Name":"lamp"}`, false), test.ShouldBeNil)
	test.That(t, f.sched.Count("Trig_lamp"), test.ShouldEqual, 1)
	test.That(t, f.sched.Count("Trig_trig1"), test.ShouldEqual, 0)
	test.That(t, f.sched.Names(), test.ShouldResemble, []string{"Trig_lamp"})
	test.That(t, f.in.TaskName(), test.ShouldEqual, "Trig_lamp")

	cfg, err := f.in.GetConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decode(t, cfg)["Name"], test.ShouldEqual, "lamp")

	// Same name and an absent name leave the worker alone.
	test.That(t, f.in.SetConfig(`{"Name":"lamp"}`, false), test.ShouldBeNil)
	test.That(t, f.in.SetConfig(`{"Payload":"p"}`, false), test.ShouldBeNil)
	test.That(t, f.sched.Names(), test.ShouldResemble, []string{"Trig_lamp"})
}

func TestRenameBeforeBeginOnlyChangesName(t *testing.T) {
	f := newFixture(t, "trig1")
	test.That(t, f.in.SetConfig(`{"Name":"early"}`, false), test.ShouldBeNil)
	test.That(t, f.in.Name(), test.ShouldEqual, "early")
	test.That(t, f.sched.Names(), test.ShouldBeEmpty)
}

func TestConcurrentRenamesKeepOneWorker(t *testing.T) {
	f := newFixture(t, "trig1")
	f.begin(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				name := "n" + strconv.Itoa(g) + "_" + strconv.Itoa(i)
				_ = f.in.SetConfig(`{"Name":"`+name+`"}`, false)
				_, _ = f.in.GetConfig()
			}
		}(g)
	}
	wg.Wait()

	names := f.sched.Names()
	test.That(t, names, test.ShouldHaveLength, 1)
	test.That(t, names[0], test.ShouldEqual, "Trig_"+f.in.Name())
}

func TestRenameSpawnFailureKeepsOldWorker(t *testing.T) {
	f := newFixture(t, "trig1")
	f.begin(t)
	f.sched.SetMaxTasks(1)

	err := f.in.SetConfig(`{"Name":"lamp"}`, false)
	test.That(t, errcode.Of(err), test.ShouldEqual, errcode.SpawnFailed)
	test.That(t, f.sched.Names(), test.ShouldResemble, []string{"Trig_trig1"})
	test.That(t, f.in.TaskName(), test.ShouldEqual, "Trig_trig1")
	// The new name is kept; a later rename relabels the worker.
	test.That(t, f.in.Name(), test.ShouldEqual, "lamp")

	f.sched.SetMaxTasks(0)
	test.That(t, f.in.SetConfig(`{"Name":"porch"}`, false), test.ShouldBeNil)
	test.That(t, f.sched.Names(), test.ShouldResemble, []string{"Trig_porch"})
}

func TestCloseStopsWorker(t *testing.T) {
	f := newFixture(t, "trig1")
	f.begin(t)
	test.That(t, f.in.SetConfig(`{"trigger":"RISING"}`, false), test.ShouldBeNil)
	test.That(t, f.pin().IRQEdge(), test.ShouldEqual, pins.EdgeRising)

	test.That(t, f.in.Close(), test.ShouldBeNil)
	test.That(t, f.sched.Names(), test.ShouldBeEmpty)
	test.That(t, f.in.Started(), test.ShouldBeFalse)
	test.That(t, f.pin().IRQEdge(), test.ShouldEqual, pins.EdgeNone)

	ok, body := f.in.ReceiveAction(0, "x")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, body, test.ShouldEqual, `{"success": false}`)
}

func TestFirstBootDefaultsResetEdge(t *testing.T) {
	f := newFixture(t, "trig1")
	test.That(t, f.in.SetConfig(`{"trigger":"RISING"}`, false), test.ShouldBeNil)
	f.begin(t)
	// Without a settings file the factory defaults win and no edge is armed.
	test.That(t, f.pin().IRQEdge(), test.ShouldEqual, pins.EdgeNone)
	test.That(t, f.store.Exists(f.in.ConfigPath()), test.ShouldBeTrue)
}
