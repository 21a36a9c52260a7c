package workflow

import "strings"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleObservation Role = "observation"
	RoleNotice      Role = "notice"
)

// Turn is one immutable conversation entry. Turns are only ever appended to a
// session's log, never edited or reordered.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Step names used as control values. An empty control means the run is done.
const (
	StepReasoning = "reasoning"
	StepReview    = "review"
	StepTools     = "tools"
	StepTerminal  = ""
)

// State is the full persisted state of one session's run. It is the unit of
// checkpointing: the executor owns it during a run, the checkpoint store owns
// the durable copy between runs.
type State struct {
	Turns      []Turn `json:"turns"`
	Control    string `json:"control"`
	Feedback   string `json:"feedback,omitempty"`
	Iterations int    `json:"iterations"`
}

// NewState returns a fresh state positioned at the reasoning step.
func NewState() *State {
	return &State{Control: StepReasoning}
}

// Append adds a turn to the log. It is the only mutator of Turns.
func (s *State) Append(t Turn) {
	s.Turns = append(s.Turns, t)
}

// LastTurn returns the most recent turn, or false when the log is empty.
func (s *State) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// Visible projects the log down to the turns an external caller should see.
// Observation turns, notice turns and anything shaped like a tool invocation
// (tool-call JSON is sometimes re-prompted under the user role) are hidden.
// The filter is stateless and recomputed on every call.
func (s *State) Visible() []Turn {
	out := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role == RoleObservation || t.Role == RoleNotice {
			continue
		}
		if looksLikeAction(t.Content) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// LastVisibleAssistant returns the content of the newest assistant turn that
// survives the visibility filter.
func (s *State) LastVisibleAssistant() (string, bool) {
	visible := s.Visible()
	for i := len(visible) - 1; i >= 0; i-- {
		if visible[i].Role == RoleAssistant {
			return visible[i].Content, true
		}
	}
	return "", false
}

// SentinelPrefix marks a terminating, dashboard-worthy answer. The analyst is
// instructed to close final responses with "DASHBOARD:TICKER".
const SentinelPrefix = "DASHBOARD:"

// HasSentinel reports whether text carries the completion marker.
func HasSentinel(text string) bool {
	return strings.Contains(text, SentinelPrefix)
}
