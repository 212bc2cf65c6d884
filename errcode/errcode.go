package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"

	// Configuration
	ParseFailed      Code = "parse_failed"
	PersistFailed    Code = "persist_failed"
	BaseConfigFailed Code = "base_config_failed"
	UnknownMode      Code = "unknown_mode"
	UnknownEdge      Code = "unknown_edge"

	// Lifecycle
	AlreadyStarted Code = "already_started"
	NotStarted     Code = "not_started"
	SpawnFailed    Code = "spawn_failed"
	UnknownTask    Code = "unknown_task"

	// Dispatch
	POSTNotReady   Code = "post_not_ready"
	UnknownActor   Code = "unknown_actor"
	UnknownAction  Code = "unknown_action"
	UnknownOpcode  Code = "unknown_opcode"
	DuplicateActor Code = "duplicate_actor"
	Disabled       Code = "disabled"
	ActionFailed   Code = "action_failed"

	// Pins
	UnknownPin Code = "unknown_pin"
	IRQFailed  Code = "irq_failed"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is matches the bare Code, so errors.Is(err, errcode.X) works through any wrapping.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E; a nil cause is allowed.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return Of(inner)
		}
	}
	return Error
}
