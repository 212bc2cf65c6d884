package types

// Description is how an actor advertises itself.
type Description struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Actions map[string]int `json:"actions"` // action name -> opcode
}

// Clone returns a deep copy.
func (d Description) Clone() Description {
	out := d
	if d.Actions != nil {
		out.Actions = make(map[string]int, len(d.Actions))
		for k, v := range d.Actions {
			out.Actions[k] = v
		}
	}
	return out
}

// ActionResult is the JSON body actors return from an action. Success is a pointer so an
// absent field can be told apart from false.
type ActionResult struct {
	Success *bool `json:"success,omitempty"`
}

// DispatchEvent is published after an actor action ran.
type DispatchEvent struct {
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Payload string `json:"payload"`
	OK      bool   `json:"ok"`
	TSms    int64  `json:"ts_ms"`
}

// Generic replies
type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
