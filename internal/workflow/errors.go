package workflow

import (
	"errors"
	"fmt"
)

// Recoverable conditions. These never abort a run: the loop converts them into
// conversation turns and routes back to reasoning.
var (
	// ErrMalformedAction means the parser could not extract a valid tool
	// invocation from assistant text.
	ErrMalformedAction = errors.New("malformed action")

	// ErrUnknownTool means the requested tool name is not in the registry.
	ErrUnknownTool = errors.New("unknown tool")
)

// ModelError wraps a failed reasoning or review call. The step that hit it
// soft-fails into an apologetic assistant turn; it is never retried within a
// run.
type ModelError struct {
	Stage string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call failed during %s: %v", e.Stage, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// PersistenceError wraps a checkpoint load/save failure. Unlike every other
// failure it propagates to the caller of Run: silently losing state is worse
// than failing the call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
