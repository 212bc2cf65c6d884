package trigger

import "actorcode-go/services/actor"

// ReceiveAction implements actor.Actor. Opcode 0 fires the configured target with the
// caller's payload.
func (in *Interrupt) ReceiveAction(opcode int, payload string) (bool, string) {
	if opcode == opTriggerAction && in.triggerAction(payload) {
		return true, `{"success": true}`
	}
	return true, `{"success": false}`
}

// triggerAction invokes the configured target with payload. Nothing is dispatched before
// Begin or until the power-on self-test has passed.
func (in *Interrupt) triggerAction(payload string) bool {
	if !in.helper.Enabled() {
		return false
	}
	if !in.deps.POST.Ready() {
		in.log.Debugf("%s: dispatch suppressed, POST not passed", in.Name())
		return false
	}
	in.mu.RLock()
	target, self := in.actorName, in.actorName == in.desc.Name
	actions := actor.Actions{target: {in.actionName: payload}}
	in.mu.RUnlock()
	// A trigger aimed at itself would recurse through the registry forever.
	if self {
		in.log.Warnf("%s: refusing to dispatch to itself", target)
		return false
	}
	return in.resolver.TriggerActions(actions)
}
