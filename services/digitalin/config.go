package digitalin

import (
	"encoding/json"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"actorcode-go/errcode"
	"actorcode-go/services/digitalin/pins"
)

// Pin modes.
const (
	ModeInput         = "INPUT"
	ModeInputPullup   = "INPUT_PULLUP"
	ModeInputPulldown = "INPUT_PULLDOWN"
)

// Interrupt triggers.
const (
	TriggerNone    = "NONE"
	TriggerRising  = "RISING"
	TriggerFalling = "FALLING"
	TriggerChange  = "CHANGE"
)

// Config is the persisted digital-input configuration. The task fields drive the periodic
// sampling task used on pins where interrupts are unavailable.
type Config struct {
	ID          int    `json:"id"`
	Mode        string `json:"mode"`
	Trigger     string `json:"trigger"`
	TaskName    string `json:"taskName"`
	TaskPeriod  int    `json:"taskPeriod"`
	TaskEnabled bool   `json:"taskEnabled"`
}

// Modes and Triggers list accepted values in display order.
var (
	Modes    = []string{ModeInput, ModeInputPullup, ModeInputPulldown}
	Triggers = []string{TriggerNone, TriggerRising, TriggerFalling, TriggerChange}
)

func pullFor(mode string) (pins.Pull, bool) {
	switch strings.ToUpper(mode) {
	case ModeInput:
		return pins.PullNone, true
	case ModeInputPullup:
		return pins.PullUp, true
	case ModeInputPulldown:
		return pins.PullDown, true
	}
	return 0, false
}

func edgeFor(trigger string) (pins.Edge, bool) {
	switch strings.ToUpper(trigger) {
	case TriggerNone:
		return pins.EdgeNone, true
	case TriggerRising:
		return pins.EdgeRising, true
	case TriggerFalling:
		return pins.EdgeFalling, true
	case TriggerChange:
		return pins.EdgeBoth, true
	}
	return 0, false
}

// merge decodes raw JSON on top of base. Keys absent from raw keep base values; values are
// weakly typed so "5" and 5 are both accepted for numbers.
func merge(base Config, raw string) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return base, &errcode.E{C: errcode.ParseFailed, Op: "digitalin config", Err: err}
	}
	out := base
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(m); err != nil {
		return base, &errcode.E{C: errcode.InvalidParams, Op: "digitalin config", Err: err}
	}
	if _, ok := pullFor(out.Mode); !ok {
		return base, &errcode.E{C: errcode.UnknownMode, Op: "digitalin config", Msg: out.Mode}
	}
	if _, ok := edgeFor(out.Trigger); !ok {
		return base, &errcode.E{C: errcode.UnknownEdge, Op: "digitalin config", Msg: out.Trigger}
	}
	if out.TaskPeriod < 0 {
		return base, &errcode.E{C: errcode.InvalidParams, Op: "digitalin config", Msg: "negative taskPeriod"}
	}
	return out, nil
}
