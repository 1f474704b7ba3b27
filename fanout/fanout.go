// Package fanout runs a batch of homogeneous sub-operations concurrently and
// aggregates their outcomes with the at-least-one-success rule: a batch in
// which every item failed is a hard failure (ErrAllFailed), any other batch
// succeeds with per-item errors kept inline.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/logging"
)

// DefaultMaxParallel caps the parallelism of a batch unless overridden.
const DefaultMaxParallel = 16

// ErrAllFailed matches (via errors.Is) the error returned when every item of
// a non-empty batch failed.
var ErrAllFailed = errors.New("fanout: all items failed")

// Result is the outcome of one item. Exactly one of Value / Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// OK reports whether the item succeeded.
func (r Result[R]) OK() bool { return r.Err == nil }

// AllFailedError carries the per-item errors of a batch with no success.
type AllFailedError struct {
	Errors []error
}

func (e *AllFailedError) Error() string {
	if len(e.Errors) == 0 {
		return ErrAllFailed.Error()
	}
	return fmt.Sprintf("all %d items failed; first error: %v", len(e.Errors), e.Errors[0])
}

// Is matches ErrAllFailed.
func (e *AllFailedError) Is(target error) bool { return target == ErrAllFailed }

// Unwrap exposes the item errors to errors.Is / errors.As.
func (e *AllFailedError) Unwrap() []error { return e.Errors }

// ErrorKind implements core.Kinder.
func (e *AllFailedError) ErrorKind() core.ErrorKind { return core.KindAllFailed }

// PanicError is recorded for an item whose operation panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.Value) }

// Options configure a batch run.
type Options struct {
	MaxParallel int    // <1 => DefaultMaxParallel
	Name        string // batch label used in log lines
	Logger      logging.Logger
}

// WithMaxParallel caps the number of concurrently running items.
func WithMaxParallel(n int) func(o *Options) {
	return func(o *Options) { o.MaxParallel = n }
}

// WithName labels the batch in log lines.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithLogger sets the logger used for panic and batch summary lines.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Run executes op for every item with parallelism min(len(items), MaxParallel)
// and returns one Result per item, slot i holding the outcome of items[i]
// regardless of completion order. Items never started because ctx ended
// record ctx.Err(). A panic in one item is recovered into a *PanicError and
// does not affect the others.
func Run[I, R any](
	ctx context.Context,
	items []I,
	op func(ctx context.Context, item I) (R, error),
	optFns ...func(o *Options),
) ([]Result[R], error) {
	opts := Options{MaxParallel: DefaultMaxParallel, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	n := len(items)
	results := make([]Result[R], n)
	if n == 0 {
		return results, nil
	}

	maxPar := opts.MaxParallel
	if maxPar <= 0 {
		maxPar = DefaultMaxParallel
	}
	if maxPar > n {
		maxPar = n
	}

	sem := make(chan struct{}, maxPar)
	var wg sync.WaitGroup
	start := time.Now()

	for i := range items {
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int, item I) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = runOne(ctx, item, op, opts, idx)
		}(i, items[i])
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}

	opts.Logger.Debug(
		"fanout.batch.complete",
		"batch", opts.Name,
		"count", n,
		"failed", len(errs),
		"parallelism", maxPar,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(errs) == n {
		return results, &AllFailedError{Errors: errs}
	}
	return results, nil
}

func runOne[I, R any](
	ctx context.Context,
	item I,
	op func(ctx context.Context, item I) (R, error),
	opts Options,
	idx int,
) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Error("fanout.item.panic", "batch", opts.Name, "index", idx, "recover", fmt.Sprint(r))
			res = Result[R]{Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()
	if err := ctx.Err(); err != nil {
		return Result[R]{Err: err}
	}
	v, err := op(ctx, item)
	if err != nil {
		return Result[R]{Err: err}
	}
	return Result[R]{Value: v}
}

// Successes returns the values of succeeded slots, in input order.
func Successes[R any](results []Result[R]) []R {
	out := make([]R, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// Errors returns the errors of failed slots, in input order.
func Errors[R any](results []Result[R]) []error {
	var out []error
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}
