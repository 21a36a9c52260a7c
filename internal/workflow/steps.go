package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ModelClient is the boundary to a language model. Two independent identities
// are injected into the executor: the reasoning model and the review model.
// Implementations must be stateless and safe for concurrent sessions.
type ModelClient interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// CheckpointStore is the durable side of a session. Load returns false when no
// checkpoint exists yet. Implementations must tolerate concurrent sessions;
// the executor serializes runs per session id itself.
type CheckpointStore interface {
	Load(ctx context.Context, sessionID string) (*State, bool, error)
	Save(ctx context.Context, sessionID string, state *State) error
	Purge(ctx context.Context, sessionID string) error
}

// reasoningStep invokes the analyst model with the full turn history plus any
// outstanding reviewer feedback and appends its raw output. Feedback is
// consumed at most once: it is cleared here whether or not the call succeeds.
// A model failure soft-fails into an apologetic assistant turn and terminal
// routing; it never propagates.
func (e *Executor) reasoningStep(ctx context.Context, state *State) (terminal bool) {
	feedback := state.Feedback
	state.Feedback = ""

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ModelTimeout)
	defer cancel()

	out, err := e.reasoning.Complete(callCtx, analystPrompt(e.registry.Catalog(), feedback), state.Turns)
	if err != nil {
		merr := &ModelError{Stage: "reasoning", Err: err}
		e.logger.Printf("reasoning soft-fail: %v", merr)
		state.Append(Turn{Role: RoleAssistant, Content: modelFailureMessage(err)})
		return true
	}
	state.Append(Turn{Role: RoleAssistant, Content: out})
	return false
}

// reviewStep asks the independent review model to classify the latest analyst
// output. The verdict is free text; it is interpreted once, here, and the
// router only ever sees the resulting Classification. A review model failure
// is treated like any other model outage: apologize and terminate.
func (e *Executor) reviewStep(ctx context.Context, state *State) (Classification, bool) {
	last, _ := state.LastTurn()

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ModelTimeout)
	defer cancel()

	verdict, err := e.review.Complete(callCtx, reviewerPrompt(), state.Turns)
	if err != nil {
		merr := &ModelError{Stage: "review", Err: err}
		e.logger.Printf("review soft-fail: %v", merr)
		state.Append(Turn{Role: RoleAssistant, Content: modelFailureMessage(err)})
		return ClassifyNone, true
	}

	class := interpretClassification(verdict)
	resolved := resolveReview(class, last.Content, e.cfg.SentinelFirst)
	if resolved == ClassifyRetry {
		state.Feedback = verdict
	}
	return resolved, false
}

// toolStep parses the latest assistant turn into an action and executes it
// against the registry. Every failure mode is non-fatal: malformed JSON yields
// a corrective notice turn, an unknown tool or a tool error yields an
// observation turn describing the problem, and the loop returns to reasoning
// either way.
func (e *Executor) toolStep(ctx context.Context, state *State) {
	last, _ := state.LastTurn()

	action, err := ParseAction(last.Content)
	if err != nil {
		e.metrics.toolCall("", "malformed")
		state.Append(Turn{Role: RoleNotice, Content: fmt.Sprintf("SYSTEM ERROR: JSON/Tool failure: %v", err)})
		return
	}

	tool, ok := e.registry.Lookup(action.Tool)
	if !ok {
		e.metrics.toolCall(action.Tool, "unknown")
		err := fmt.Errorf("%w: %q", ErrUnknownTool, action.Tool)
		state.Append(Turn{Role: RoleObservation, Content: fmt.Sprintf("SYSTEM ERROR: %v", err)})
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ToolTimeout)
	defer cancel()

	e.logger.Printf("executing tool %s", action.Tool)
	result, err := tool.Call(callCtx, action.Args)
	if err != nil {
		e.metrics.toolCall(action.Tool, "error")
		state.Append(Turn{Role: RoleObservation, Content: truncate(fmt.Sprintf("SYSTEM ERROR: tool %s failed: %v", action.Tool, err), e.cfg.MaxObservationChars)})
		return
	}

	e.metrics.toolCall(action.Tool, "ok")
	state.Append(Turn{
		Role:    RoleObservation,
		Content: truncate(fmt.Sprintf("Observation from %s: %s", action.Tool, serialize(result)), e.cfg.MaxObservationChars),
	})
}

// serialize renders a tool result as text for the conversation log.
func serialize(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// truncate bounds observation size so tool output cannot grow the prompt
// without limit.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

// IsMalformedAction reports whether err stems from an unparseable action.
func IsMalformedAction(err error) bool { return errors.Is(err, ErrMalformedAction) }
