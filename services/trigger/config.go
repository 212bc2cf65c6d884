package trigger

import (
	"encoding/json"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"actorcode-go/errcode"
	"actorcode-go/x/strx"
)

// Digital-input keys that are internal to the trigger and never serialized.
var hiddenKeys = []string{"id", "taskName", "taskPeriod", "taskEnabled"}

// GetConfig returns the trigger configuration as JSON: the digital-input settings, the name,
// the payload and the action selector with every other actor's actions as options.
func (in *Interrupt) GetConfig() (string, error) {
	base, err := in.input.GetConfig()
	if err != nil {
		return "", &errcode.E{C: errcode.BaseConfigFailed, Op: "trigger get config", Err: err}
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(base), &doc); err != nil {
		in.log.Errorf("Deserialization failed: %v", err)
		return "", &errcode.E{C: errcode.ParseFailed, Op: "trigger get config", Err: err}
	}
	for _, k := range hiddenKeys {
		delete(doc, k)
	}

	in.mu.RLock()
	name, current, payload := in.desc.Name, in.action, in.payload
	in.mu.RUnlock()

	doc["Name"] = name
	doc["Payload"] = payload
	doc["Action"] = map[string]any{
		"current": current,
		"options": in.actionOptions(name),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", &errcode.E{C: errcode.ParseFailed, Op: "trigger get config", Err: err}
	}
	return string(b), nil
}

// actionOptions lists "<actor>:<action>" for every actor but self, by actor name then opcode.
// With no actors known at all it returns a single empty option.
func (in *Interrupt) actionOptions(self string) []string {
	all := in.resolver.ListAllActions()
	if len(all) == 0 {
		return []string{""}
	}
	names := lo.Without(lo.Keys(all), self)
	sort.Strings(names)
	out := []string{}
	for _, a := range names {
		ops := lo.Keys(all[a])
		sort.Ints(ops)
		for _, op := range ops {
			out = append(out, strx.JoinTarget(a, all[a][op]))
		}
	}
	return out
}

// SetConfig applies configJSON. The digital-input settings are forwarded first; then the
// name, action target and payload are taken from the document. With save set, configJSON
// is written verbatim to the config file and the write result is returned. In-memory
// changes are kept even if the write fails.
func (in *Interrupt) SetConfig(configJSON string, save bool) error {
	if err := in.input.SetConfig(configJSON); err != nil {
		return &errcode.E{C: errcode.BaseConfigFailed, Op: "trigger set config", Err: err}
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(configJSON), &doc); err != nil {
		in.log.Errorf("Deserialization failed: %v", err)
		return &errcode.E{C: errcode.ParseFailed, Op: "trigger set config", Err: err}
	}

	if v, ok := doc["Name"]; ok {
		if err := in.rename(cast.ToString(v)); err != nil {
			return err
		}
	}

	in.mu.Lock()
	if a, ok := doc["Action"]; ok {
		if cur, ok := cast.ToStringMap(a)["current"]; ok {
			in.action = cast.ToString(cur)
			if actorName, actionName, ok := strx.SplitTarget(in.action); ok {
				in.actorName, in.actionName = actorName, actionName
			}
		}
	}
	if p, ok := doc["Payload"]; ok {
		in.payload = cast.ToString(p)
	}
	in.mu.Unlock()

	if !save {
		return nil
	}
	if in.deps.Store == nil {
		return &errcode.E{C: errcode.PersistFailed, Op: "trigger save", Msg: "no storage"}
	}
	if err := in.deps.Store.WriteFile(in.configPath, configJSON); err != nil {
		in.log.Errorf("%s: failed to save config: %v", in.Name(), err)
		return &errcode.E{C: errcode.PersistFailed, Op: "trigger save " + in.configPath, Err: err}
	}
	return nil
}

// rename adopts name and relabels a running worker. An empty or unchanged name is a no-op.
func (in *Interrupt) rename(name string) error {
	if name == "" {
		return nil
	}
	in.renameCS.Enter()
	defer in.renameCS.Exit()

	in.mu.Lock()
	if name == in.desc.Name {
		in.mu.Unlock()
		return nil
	}
	in.desc.Name = name
	in.mu.Unlock()

	return in.renameLocked(name)
}
