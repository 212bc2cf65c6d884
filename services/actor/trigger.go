package actor

import (
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"actorcode-go/errcode"
)

// Actions maps actor name -> action name -> payload.
type Actions map[string]map[string]string

// Resolver is what an actor needs to invoke other actors.
type Resolver interface {
	TriggerActions(actions Actions) bool
	ListAllActions() map[string]map[int]string
}

// ActionTrigger is the per-actor handle on the registry. It refuses to dispatch until
// enabled.
type ActionTrigger struct {
	reg     *Registry
	enabled atomic.Bool
}

func NewActionTrigger(reg *Registry) *ActionTrigger { return &ActionTrigger{reg: reg} }

func (t *ActionTrigger) SetEnabled(on bool) { t.enabled.Store(on) }
func (t *ActionTrigger) Enabled() bool      { return t.enabled.Load() }

// Trigger runs every action and returns the combined error of the failures.
func (t *ActionTrigger) Trigger(actions Actions) error {
	if !t.Enabled() {
		return errcode.Disabled
	}
	if t.reg == nil {
		return errcode.UnknownActor
	}
	var err error
	for actorName, acts := range actions {
		for actionName, payload := range acts {
			_, e := t.reg.Dispatch(actorName, actionName, payload)
			err = multierr.Append(err, e)
		}
	}
	return err
}

// TriggerActions reports whether every action succeeded.
func (t *ActionTrigger) TriggerActions(actions Actions) bool {
	return t.Trigger(actions) == nil
}

func (t *ActionTrigger) ListAllActions() map[string]map[int]string {
	if t.reg == nil {
		return map[string]map[int]string{}
	}
	return t.reg.ListAllActions()
}
