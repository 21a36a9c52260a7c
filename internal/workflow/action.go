package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a parsed tool-invocation request. It lives only for the duration
// of a single step evaluation and is never persisted.
type Action struct {
	Tool string
	Args map[string]any
}

// actionEnvelope is the wire contract between model output and the parser:
// a single JSON object with an action marker, a tool name and an arguments
// object, nothing else.
type actionEnvelope struct {
	Action string         `json:"action"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
}

const actionMarker = "tool"

// ParseAction extracts a structured tool invocation from free-form assistant
// text. It takes the substring between the first '{' and the last '}' and
// decodes it. Decodability plus the action marker and a tool name are the only
// success criteria; whether the tool actually exists is the tool step's
// problem. Every failure wraps ErrMalformedAction.
func ParseAction(text string) (Action, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Action{}, fmt.Errorf("%w: no JSON object in text", ErrMalformedAction)
	}

	var env actionEnvelope
	if err := json.Unmarshal([]byte(text[start:end+1]), &env); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if env.Action != actionMarker {
		return Action{}, fmt.Errorf("%w: missing %q marker", ErrMalformedAction, actionMarker)
	}
	if env.Tool == "" {
		return Action{}, fmt.Errorf("%w: missing tool name", ErrMalformedAction)
	}

	args := env.Args
	if args == nil {
		args = map[string]any{}
	}
	return Action{Tool: env.Tool, Args: args}, nil
}

// looksLikeAction reports whether text structurally matches a tool invocation.
// Used by the visibility filter so tool-call turns never leak to callers.
func looksLikeAction(text string) bool {
	_, err := ParseAction(text)
	return err == nil
}
