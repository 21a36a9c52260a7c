package workflow

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Config bounds a run. Zero values fall back to the defaults below.
type Config struct {
	// MaxIterations caps full reasoning cycles before the run is forced to
	// terminate with the fixed limit message.
	MaxIterations int
	// MaxObservationChars truncates serialized tool output before it enters
	// the conversation log.
	MaxObservationChars int
	// ModelTimeout bounds each reasoning/review call.
	ModelTimeout time.Duration
	// ToolTimeout bounds each tool invocation. Tools proxy third-party
	// networks, so this is enforced even when the tool forgets to.
	ToolTimeout time.Duration
	// SentinelFirst gives sentinel detection in raw analyst output priority
	// over the reviewer's explicit classification. Default is the reverse.
	SentinelFirst bool
}

const (
	DefaultMaxIterations       = 5
	DefaultMaxObservationChars = 2000
	DefaultModelTimeout        = 60 * time.Second
	DefaultToolTimeout         = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxObservationChars <= 0 {
		c.MaxObservationChars = DefaultMaxObservationChars
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	return c
}

// Executor drives a session's workflow: it runs the current step, lets the
// router pick the next one and loops until terminal, checkpointing after every
// step so partial progress survives a crash. All collaborators are injected;
// the executor holds no ambient global state.
type Executor struct {
	reasoning ModelClient
	review    ModelClient // nil disables the review step (parser-driven variant)
	registry  *Registry
	store     CheckpointStore
	cfg       Config
	logger    *log.Logger
	metrics   *Metrics

	sessions sync.Map // session id -> *sync.Mutex
}

// NewExecutor wires an executor from its collaborators. review may be nil, in
// which case routing after the reasoning step is driven by the action parser
// alone. metrics and logger may be nil.
func NewExecutor(reasoning ModelClient, review ModelClient, registry *Registry, store CheckpointStore, cfg Config, logger *log.Logger, metrics *Metrics) (*Executor, error) {
	if reasoning == nil {
		return nil, fmt.Errorf("reasoning model client is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Executor{
		reasoning: reasoning,
		review:    review,
		registry:  registry,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// fallbackAnswer is returned when a run terminates without any visible
// assistant output.
const fallbackAnswer = "I've analyzed the data, but I'm having trouble providing a final answer. Please try a different query."

// Run loads (or creates) the session state, appends the user turn and drives
// the loop to terminal. It returns the last visible assistant turn. Only
// persistence failures and cancellation escape as errors; model, tool and
// parse failures are absorbed into the conversation.
func (e *Executor) Run(ctx context.Context, sessionID, input string) (string, error) {
	mu := e.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, ok, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return "", &PersistenceError{Op: "load", Err: err}
	}
	if !ok {
		state = NewState()
	}

	state.Control = StepReasoning
	state.Append(Turn{Role: RoleUser, Content: input})
	if err := e.save(ctx, sessionID, state); err != nil {
		return "", err
	}

	for state.Control != StepTerminal {
		// Cancellation is honored between steps, never mid-step; the
		// checkpoint written at the last step boundary keeps the run
		// resumable.
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		e.metrics.step(state.Control)
		e.advance(ctx, state)

		if err := e.save(ctx, sessionID, state); err != nil {
			return "", err
		}
	}

	e.metrics.run(state.Iterations)

	answer, ok := state.LastVisibleAssistant()
	if !ok {
		answer = fallbackAnswer
	}
	return answer, nil
}

// advance executes the current step and moves control to the next one.
func (e *Executor) advance(ctx context.Context, state *State) {
	switch state.Control {
	case StepReasoning:
		if e.reasoningStep(ctx, state) {
			state.Control = StepTerminal
			return
		}
		if e.review != nil {
			e.transition(state, Route(StepReasoning, ClassifyNone, state.Iterations, e.cfg.MaxIterations), false)
			return
		}
		last, _ := state.LastTurn()
		next := RouteParsed(last.Content, state.Iterations, e.cfg.MaxIterations)
		if next == StepReasoning {
			// Tool-call shaped but unparseable output: tell the analyst
			// what went wrong and try again.
			_, parseErr := ParseAction(last.Content)
			state.Append(Turn{Role: RoleNotice, Content: fmt.Sprintf("SYSTEM NOTICE: your last message was not a valid tool call (%v). Reply with exactly one JSON tool call or a final answer.", parseErr)})
		}
		e.transition(state, next, RouteParsed(last.Content, state.Iterations, state.Iterations+1) != StepTerminal)

	case StepReview:
		class, terminal := e.reviewStep(ctx, state)
		if terminal {
			state.Control = StepTerminal
			return
		}
		e.transition(state, Route(StepReview, class, state.Iterations, e.cfg.MaxIterations),
			Route(StepReview, class, state.Iterations, state.Iterations+1) != StepTerminal)

	case StepTools:
		e.toolStep(ctx, state)
		e.transition(state, Route(StepTools, ClassifyNone, state.Iterations, e.cfg.MaxIterations), true)

	default:
		state.Control = StepTerminal
	}
}

// transition applies the routed control value. Re-entering reasoning counts a
// full cycle; hitting the cap forces terminal with the fixed limit message
// regardless of what the model last produced. wouldContinue marks a terminal
// that was forced purely by the cap check inside the router (a resumed state
// already at the limit), which also earns the limit message.
func (e *Executor) transition(state *State, next string, wouldContinue bool) {
	if next == StepReasoning {
		state.Iterations++
		if state.Iterations >= e.cfg.MaxIterations {
			e.logger.Printf("iteration limit reached (%d)", state.Iterations)
			state.Append(Turn{Role: RoleAssistant, Content: LimitMessage})
			state.Control = StepTerminal
			return
		}
	}
	if next == StepTerminal && wouldContinue && state.Iterations >= e.cfg.MaxIterations {
		e.logger.Printf("iteration limit reached (%d)", state.Iterations)
		state.Append(Turn{Role: RoleAssistant, Content: LimitMessage})
	}
	state.Control = next
}

// VisibleHistory returns the session's turns after the visibility filter.
// A missing session yields an empty history, not an error.
func (e *Executor) VisibleHistory(ctx context.Context, sessionID string) ([]Turn, error) {
	state, ok, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if !ok {
		return []Turn{}, nil
	}
	return state.Visible(), nil
}

func (e *Executor) save(ctx context.Context, sessionID string, state *State) error {
	if err := e.store.Save(ctx, sessionID, state); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (e *Executor) sessionMutex(sessionID string) *sync.Mutex {
	mu, _ := e.sessions.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
