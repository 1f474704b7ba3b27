package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/fanout"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/mode"
	"github.com/hupe1980/searchmesh/model"
	"github.com/hupe1980/searchmesh/tool"
)

// turn holds the state of one Run. It is owned by a single goroutine, which
// is also the only writer of out.
type turn struct {
	o        *Orchestrator
	id       string
	mode     *mode.Resolved
	allowed  map[string]struct{}
	defs     []model.ToolDefinition
	contents []core.Content
	limiter  *core.StepLimiter
	logger   logging.Logger
	out      chan core.Event
	start    time.Time

	seq       int64
	toolCalls int
	usage     core.Usage
}

// stream is one model generation, possibly with its first element already
// read by peek.
type stream struct {
	respCh  <-chan model.Response
	errCh   <-chan error
	pending *model.Response
	err     error
	start   time.Time
}

// open starts the next generation. It fails with core.ErrStepLimitReached
// once the turn used all its steps.
func (t *turn) open(ctx context.Context) (*stream, error) {
	if err := t.limiter.Increment(); err != nil {
		return nil, err
	}
	req := model.Request{
		Instructions: t.mode.Instructions,
		Contents:     append([]core.Content(nil), t.contents...),
		Tools:        t.defs,
		Stream:       true,
		Temperature:  t.o.opts.Temperature,
	}
	respCh, errCh := t.o.model.Generate(ctx, req)
	t.logger.Debug("turn.step.start", "turn_id", t.id, "step", t.limiter.Count(), "messages", len(req.Contents))
	return &stream{respCh: respCh, errCh: errCh, start: time.Now()}, nil
}

// peek blocks until the generation produced its first response, failed, or
// ended empty. It returns the generation error, if any.
func (s *stream) peek(ctx context.Context) error {
	for s.respCh != nil || s.errCh != nil {
		select {
		case r, ok := <-s.respCh:
			if !ok {
				s.respCh = nil
				continue
			}
			s.pending = &r
			return nil
		case err, ok := <-s.errCh:
			if !ok {
				s.errCh = nil
				continue
			}
			if err != nil {
				s.err = err
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *turn) run(ctx context.Context, s *stream) {
	for {
		final, err := t.consume(ctx, s)
		t.logStep(s, final, err)
		if err != nil {
			t.fail(ctx, err)
			return
		}
		t.usage.Add(final.Usage)

		assistant := t.assignCallIDs(final.Content)
		if len(assistant.Parts) > 0 {
			t.contents = append(t.contents, assistant)
		}

		calls := assistant.FunctionCalls()
		if len(calls) == 0 {
			reason := core.FinishStop
			if final.FinishReason == "length" {
				reason = core.FinishLength
			}
			t.finish(reason)
			return
		}

		for _, call := range calls {
			t.emit(ctx, core.NewToolCallEvent(t.id, call))
		}
		t.toolCalls += len(calls)

		results := t.dispatch(ctx, calls)
		if ctx.Err() != nil {
			t.finishInterrupted(ctx)
			return
		}

		parts := make([]core.Part, 0, len(results))
		for _, r := range results {
			t.emit(ctx, core.NewToolResultEvent(t.id, r))
			parts = append(parts, core.FunctionResponsePart{FunctionResponse: r})
		}
		t.contents = append(t.contents, core.Content{Role: core.RoleTool, Parts: parts})

		next, err := t.open(ctx)
		if errors.Is(err, core.ErrStepLimitReached) {
			t.finish(core.FinishMaxSteps)
			return
		}
		s = next
	}
}

// consume relays the text deltas of one generation and returns its final
// response.
func (t *turn) consume(ctx context.Context, s *stream) (*model.Response, error) {
	if s.err != nil {
		return nil, s.err
	}

	var (
		final    *model.Response
		streamed bool
	)
	handle := func(r model.Response) {
		if r.Partial {
			if text := r.Content.Text(); text != "" {
				t.emit(ctx, core.NewTextDeltaEvent(t.id, text))
				streamed = true
			}
			return
		}
		final = &r
	}

	if s.pending != nil {
		handle(*s.pending)
		s.pending = nil
	}

	for s.respCh != nil || s.errCh != nil {
		select {
		case r, ok := <-s.respCh:
			if !ok {
				s.respCh = nil
				continue
			}
			handle(r)
		case err, ok := <-s.errCh:
			if !ok {
				s.errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if final == nil {
		final = &model.Response{Content: core.Content{Role: core.RoleAssistant}, FinishReason: "stop"}
	}
	if !streamed {
		if text := final.Content.Text(); text != "" {
			t.emit(ctx, core.NewTextDeltaEvent(t.id, text))
		}
	}
	return final, nil
}

// assignCallIDs gives every function call of c an id so results can be
// correlated. Backends that omit ids get generated ones.
func (t *turn) assignCallIDs(c core.Content) core.Content {
	out := core.Content{Role: core.RoleAssistant, Parts: make([]core.Part, 0, len(c.Parts))}
	for _, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = core.NewID()
			p = fc
		}
		out.Parts = append(out.Parts, p)
	}
	return out
}

// dispatch executes the calls of one step concurrently and returns their
// results in call order.
func (t *turn) dispatch(ctx context.Context, calls []core.FunctionCall) []core.FunctionResponse {
	results, _ := fanout.Run(ctx, calls, func(ctx context.Context, call core.FunctionCall) (core.FunctionResponse, error) {
		return t.execute(ctx, call), nil
	},
		fanout.WithMaxParallel(t.o.opts.MaxParallelTools),
		fanout.WithName("turn.tools"),
		fanout.WithLogger(t.logger),
	)

	out := make([]core.FunctionResponse, len(calls))
	for i, r := range results {
		if r.OK() {
			out[i] = r.Value
			continue
		}
		out[i] = core.FunctionResponse{
			ID:    calls[i].ID,
			Name:  calls[i].Name,
			Error: tool.AsToolError(calls[i].Name, r.Err),
		}
	}
	return out
}

func (t *turn) execute(ctx context.Context, call core.FunctionCall) core.FunctionResponse {
	if _, ok := t.allowed[call.Name]; !ok {
		t.logger.Warn("turn.tool.not_allowed", "turn_id", t.id, "mode", string(t.mode.ID), "tool", call.Name)
		return core.FunctionResponse{
			ID:    call.ID,
			Name:  call.Name,
			Error: tool.NewToolError(call.Name, core.KindToolNotAllowed, "tool is not available in mode "+string(t.mode.ID)),
		}
	}
	toolCtx := core.NewToolContext(ctx, t.id, string(t.mode.ID), call.ID, t.logger)
	return t.o.tools.Execute(ctx, toolCtx, call.Name, call.Arguments)
}

// emit sends a non-terminal event. Once ctx is done events are dropped.
func (t *turn) emit(ctx context.Context, ev core.Event) {
	if ctx.Err() != nil {
		return
	}
	t.seq++
	ev.Seq = t.seq
	select {
	case t.out <- ev:
	case <-ctx.Done():
		t.seq--
	}
}

// emitTerminal sends the closing event. It blocks until the consumer reads it.
func (t *turn) emitTerminal(ev core.Event) {
	t.seq++
	ev.Seq = t.seq
	t.out <- ev
}

func (t *turn) finish(reason core.FinishReason) {
	t.emitTerminal(core.NewDoneEvent(t.id, t.completion(reason)))
	t.logTurn(reason, nil)
}

func (t *turn) finishInterrupted(ctx context.Context) {
	reason := core.FinishCancelled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = core.FinishTimeout
	}
	t.finish(reason)
}

func (t *turn) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		t.finishInterrupted(ctx)
		return
	}
	var k core.Kinder
	if !errors.As(err, &k) {
		err = core.WrapError(core.KindStream, "model stream failed", err)
	}
	t.emitTerminal(core.NewErrorEvent(t.id, err))
	t.logTurn(core.FinishError, err)
}

func (t *turn) completion(reason core.FinishReason) core.Completion {
	return core.Completion{
		Reason:    reason,
		Steps:     t.limiter.Count(),
		ToolCalls: t.toolCalls,
		Usage:     t.usage,
	}
}

func (t *turn) logStep(s *stream, final *model.Response, err error) {
	tokens := 0
	if final != nil && final.Usage != nil {
		tokens = final.Usage.TotalTokens
	}
	if l, ok := t.logger.(logging.LLMCallLogger); ok {
		l.LogLLMCall(t.o.model.Info().Name, tokens, time.Since(s.start), err == nil, err)
	}
	t.logger.Debug("turn.step.complete", "turn_id", t.id, "step", t.limiter.Count(), "tokens", tokens)
}

func (t *turn) logTurn(reason core.FinishReason, err error) {
	dur := time.Since(t.start)
	if l, ok := t.logger.(logging.TurnLogger); ok {
		l.LogTurn(string(t.mode.ID), string(reason), t.limiter.Count(), t.toolCalls, dur, err)
		return
	}
	if err != nil {
		t.logger.Error("turn.failed", "turn_id", t.id, "mode", string(t.mode.ID), "error", err.Error())
		return
	}
	t.logger.Info("turn.complete", "turn_id", t.id, "mode", string(t.mode.ID), "finish_reason", string(reason),
		"step_count", t.limiter.Count(), "tool_call_count", t.toolCalls, "duration_ms", dur.Milliseconds())
}
