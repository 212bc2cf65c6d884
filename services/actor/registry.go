package actor

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"actorcode-go/errcode"
	"actorcode-go/logging"
)

// DispatchHook observes every dispatch attempt that reached an actor.
type DispatchHook func(actorName, actionName, payload string, ok bool, body string)

// Registry resolves actor names to live actors. Names are read from each actor on every
// lookup, so renamed actors resolve under their new name.
type Registry struct {
	mu     sync.RWMutex
	actors []Actor
	hooks  []DispatchHook
	log    logging.Logger
}

func NewRegistry(log logging.Logger) *Registry {
	if log == nil {
		log = logging.Discard()
	}
	return &Registry{log: log}
}

// Register adds a. A second actor with the same current name is rejected.
func (r *Registry) Register(a Actor) error {
	name := a.Description().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.actors {
		if x == a {
			return nil
		}
		if x.Description().Name == name {
			return &errcode.E{C: errcode.DuplicateActor, Op: "register", Msg: name}
		}
	}
	r.actors = append(r.actors, a)
	return nil
}

func (r *Registry) Unregister(a Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.actors {
		if x == a {
			r.actors = append(r.actors[:i], r.actors[i+1:]...)
			return
		}
	}
}

// OnDispatch adds a hook called after each dispatch.
func (r *Registry) OnDispatch(h DispatchHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Lookup finds an actor by its current name.
func (r *Registry) Lookup(name string) (Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actors {
		if a.Description().Name == name {
			return a, true
		}
	}
	return nil, false
}

// Actors returns the registered actors sorted by name.
func (r *Registry) Actors() []Actor {
	r.mu.RLock()
	out := append([]Actor(nil), r.actors...)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Description().Name < out[j].Description().Name
	})
	return out
}

// ListAllActions maps each actor name to its opcode -> action name table.
func (r *Registry) ListAllActions() map[string]map[int]string {
	out := map[string]map[int]string{}
	for _, a := range r.Actors() {
		d := a.Description()
		if len(d.Actions) == 0 {
			continue
		}
		ops := make(map[int]string, len(d.Actions))
		for name, op := range d.Actions {
			ops[op] = name
		}
		out[d.Name] = ops
	}
	return out
}

// Dispatch invokes actionName on actorName.
func (r *Registry) Dispatch(actorName, actionName, payload string) (string, error) {
	a, ok := r.Lookup(actorName)
	if !ok {
		return "", errors.Wrap(errcode.UnknownActor, actorName)
	}
	op, ok := a.Description().Actions[actionName]
	if !ok {
		return "", errors.Wrap(errcode.UnknownAction, actorName+":"+actionName)
	}
	accepted, body := a.ReceiveAction(op, payload)
	good := Succeeded(accepted, body)

	r.mu.RLock()
	hooks := append([]DispatchHook(nil), r.hooks...)
	r.mu.RUnlock()
	for _, h := range hooks {
		h(actorName, actionName, payload, good, body)
	}
	if !good {
		return body, &errcode.E{C: errcode.ActionFailed, Op: "dispatch " + actorName + ":" + actionName, Msg: body}
	}
	return body, nil
}
