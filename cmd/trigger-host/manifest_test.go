//go:build !rp2040

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestLoadBuiltinManifest(t *testing.T) {
	m, err := LoadManifest("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Device, test.ShouldEqual, "host")
	test.That(t, m.Triggers, test.ShouldResemble, []TriggerSpec{{Name: "doorbell", Pin: 4, ConfigFile: "Doorbell.json"}})
	test.That(t, m.LogActors, test.ShouldResemble, []LogSpec{{Name: "console"}})
}

func TestLoadManifestAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actors.yaml")
	body := "post_delay: 250ms\ntriggers:\n  - pin: 7\n  - name: porch\n    pin: 9\n"
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)

	m, err := LoadManifest(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Device, test.ShouldEqual, "host")
	test.That(t, m.POSTDelay, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, m.Triggers[0], test.ShouldResemble, TriggerSpec{Name: "Interrupt0", Pin: 7})
	test.That(t, m.Triggers[1].Name, test.ShouldEqual, "porch")
	test.That(t, m.LogActors, test.ShouldHaveLength, 1)
}

func TestLoadManifestErrors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	test.That(t, os.WriteFile(path, []byte("triggers: {pin: ["), 0o644), test.ShouldBeNil)
	_, err = LoadManifest(path)
	test.That(t, err, test.ShouldNotBeNil)
}
