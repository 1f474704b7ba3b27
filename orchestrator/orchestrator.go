package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/mode"
	"github.com/hupe1980/searchmesh/model"
	"github.com/hupe1980/searchmesh/tool"
)

// Defaults for the turn bounds.
const (
	DefaultMaxSteps         = 8
	DefaultTurnTimeout      = 2 * time.Minute
	DefaultMaxParallelTools = 8
	DefaultEventBufferSize  = 64
)

// CredentialChecker reports which credentials needed by the given tools (and
// the model backend) are absent.
type CredentialChecker interface {
	Missing(tools []string) []string
}

// Options holds configuration overrides passed to New.
type Options struct {
	// MaxSteps bounds the number of model round trips per turn.
	MaxSteps int
	// TurnTimeout bounds the wall clock duration of a turn.
	TurnTimeout time.Duration
	// MaxParallelTools caps the tool calls of one step running at once.
	MaxParallelTools int
	// EventBufferSize sets the buffering of the event channel.
	EventBufferSize int
	// Temperature is passed to the model when set.
	Temperature *float64
	// Credentials is consulted before a turn starts. Nil skips the check.
	Credentials CredentialChecker
	Logger      logging.Logger
}

// Request is the input of one turn.
type Request struct {
	// Mode selects the prompt and the allowed tools.
	Mode mode.ID
	// Messages is the conversation history, oldest first. The last message
	// is normally the user's new input.
	Messages []core.Content
	// TurnID correlates events and logs. Generated when empty.
	TurnID string
}

// Orchestrator runs turns. It is safe for concurrent use; each turn owns its
// own state.
type Orchestrator struct {
	model model.Model
	modes *mode.Registry
	tools *tool.Registry
	opts  Options
}

// New constructs an Orchestrator with optional overrides.
func New(m model.Model, modes *mode.Registry, tools *tool.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxSteps:         DefaultMaxSteps,
		TurnTimeout:      DefaultTurnTimeout,
		MaxParallelTools: DefaultMaxParallelTools,
		EventBufferSize:  DefaultEventBufferSize,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	if opts.MaxParallelTools <= 0 {
		opts.MaxParallelTools = DefaultMaxParallelTools
	}
	if opts.EventBufferSize < 0 {
		opts.EventBufferSize = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Orchestrator{model: m, modes: modes, tools: tools, opts: opts}
}

// Run starts a turn and returns its event stream.
//
// Failures detected before the stream opens are returned directly: an empty
// history (ValidationError), an unknown mode or missing credentials
// (ConfigurationError), and a model backend rejecting the first request
// (ModelError or the backend's classified kind). Later failures are emitted
// as a terminal Error event.
func (o *Orchestrator) Run(ctx context.Context, req Request) (<-chan core.Event, error) {
	if len(req.Messages) == 0 {
		return nil, core.NewError(core.KindValidation, "at least one message is required")
	}
	resolved, err := o.modes.Resolve(req.Mode)
	if err != nil {
		return nil, err
	}
	if o.opts.Credentials != nil {
		if missing := o.opts.Credentials.Missing(resolved.Tools); len(missing) > 0 {
			return nil, core.NewError(core.KindConfiguration,
				fmt.Sprintf("mode %q is missing credentials: %s", resolved.ID, strings.Join(missing, ", ")))
		}
	}

	turnID := req.TurnID
	if turnID == "" {
		turnID = core.NewID()
	}

	turnCtx, cancel := context.WithTimeout(ctx, o.opts.TurnTimeout)
	t := &turn{
		o:        o,
		id:       turnID,
		mode:     resolved,
		allowed:  toSet(resolved.Tools),
		defs:     o.tools.Definitions(resolved.Tools),
		contents: append([]core.Content(nil), req.Messages...),
		limiter:  core.NewStepLimiter(o.opts.MaxSteps),
		logger:   o.opts.Logger,
		out:      make(chan core.Event, o.opts.EventBufferSize),
		start:    time.Now(),
	}

	s, err := t.open(turnCtx)
	if err != nil {
		cancel()
		return nil, core.WrapError(core.KindInternal, "open turn", err)
	}
	if err := s.peek(turnCtx); err != nil && turnCtx.Err() == nil {
		cancel()
		t.logTurn(core.FinishError, err)
		var k core.Kinder
		if errors.As(err, &k) {
			return nil, err
		}
		return nil, core.WrapError(core.KindModel, "model rejected the request", err)
	}

	go func() {
		defer cancel()
		defer close(t.out)
		t.run(turnCtx, s)
	}()

	return t.out, nil
}

// Modes exposes the mode registry the orchestrator resolves against.
func (o *Orchestrator) Modes() *mode.Registry { return o.modes }

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
