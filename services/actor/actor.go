// Package actor holds the registry of addressable actors and the action-trigger helper that
// actors use to invoke each other.
package actor

import (
	"encoding/json"

	"actorcode-go/types"
)

// Actor is an addressable object with a name and a table of opcoded actions.
type Actor interface {
	// Description returns a snapshot; the name may change between calls.
	Description() types.Description
	// ReceiveAction runs opcode with payload. accepted reports whether the request was
	// understood; body is a JSON document describing the outcome.
	ReceiveAction(opcode int, payload string) (accepted bool, body string)
}

// Succeeded interprets a ReceiveAction result: the request must be accepted and the body
// must not report {"success": false}.
func Succeeded(accepted bool, body string) bool {
	if !accepted {
		return false
	}
	var r types.ActionResult
	if err := json.Unmarshal([]byte(body), &r); err != nil || r.Success == nil {
		return true
	}
	return *r.Success
}
