package config

import (
	"go.uber.org/multierr"

	"actorcode-go/services/storage"
)

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Factory settings per device ID. Key: settings file name under /settings/act.
// Files that already exist are never overwritten.
// -----------------------------------------------------------------------------

const cfgPicoDoorbell = `{
  "Name": "doorbell",
  "mode": "INPUT_PULLUP",
  "trigger": "FALLING",
  "Action": {"current": "console:print"},
  "Payload": "ding"
}`

var embeddedConfigs = map[string]map[string]string{
	"pico": {
		"Doorbell.json": cfgPicoDoorbell,
	},
}

// EmbeddedConfigLookup allows overriding how factory settings are resolved.
var EmbeddedConfigLookup = func(device string) (map[string]string, bool) {
	m, ok := embeddedConfigs[device]
	return m, ok
}

// Seed writes the factory settings of device into store, skipping files already present.
// It returns the files written.
func Seed(store *storage.Storage, device string) ([]string, error) {
	files, ok := EmbeddedConfigLookup(device)
	if !ok {
		return nil, nil
	}
	var (
		written []string
		err     error
	)
	for file, js := range files {
		p := storage.ActorPath(file)
		if store.Exists(p) {
			continue
		}
		if e := store.WriteFile(p, js); e != nil {
			err = multierr.Append(err, e)
			continue
		}
		written = append(written, file)
	}
	return written, err
}
