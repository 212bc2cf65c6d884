//go:build !rp2040

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest lists the actors to construct at boot.
type Manifest struct {
	Device    string        `yaml:"device"`
	POSTDelay time.Duration `yaml:"post_delay"`
	Triggers  []TriggerSpec `yaml:"triggers"`
	LogActors []LogSpec     `yaml:"log_actors"`
}

type TriggerSpec struct {
	Name       string `yaml:"name"`
	Pin        int    `yaml:"pin"`
	ConfigFile string `yaml:"config_file"`
}

type LogSpec struct {
	Name string `yaml:"name"`
}

const defaultManifest = `
device: host
triggers:
  - name: doorbell
    pin: 4
    config_file: Doorbell.json
log_actors:
  - name: console
`

// LoadManifest reads the manifest at path, or the built-in one when path is empty.
func LoadManifest(path string) (*Manifest, error) {
	data := []byte(defaultManifest)
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "reading manifest")
		}
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	applyDefaults(&m)
	return &m, nil
}

func applyDefaults(m *Manifest) {
	if m.Device == "" {
		m.Device = "host"
	}
	if m.POSTDelay < 0 {
		m.POSTDelay = 0
	}
	for i := range m.Triggers {
		if m.Triggers[i].Name == "" {
			m.Triggers[i].Name = "Interrupt" + strconv.Itoa(i)
		}
	}
	// Triggers need something to fire at.
	if len(m.LogActors) == 0 {
		m.LogActors = []LogSpec{{Name: "console"}}
	}
}
