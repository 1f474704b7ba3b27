package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
)

func TestRun_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results, err := Run(context.Background(), items, func(_ context.Context, n int) (string, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("item-%d", n), nil
	})
	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, n := range items {
		assert.Equal(t, fmt.Sprintf("item-%d", n), results[i].Value)
		assert.True(t, results[i].OK())
	}
}

func TestRun_PartialFailureSucceeds(t *testing.T) {
	results, err := Run(context.Background(), []string{"ok", "bad", "ok"}, func(_ context.Context, s string) (string, error) {
		if s == "bad" {
			return "", errors.New("provider down")
		}
		return s, nil
	})
	require.NoError(t, err)
	assert.False(t, results[1].OK())
	assert.EqualError(t, results[1].Err, "provider down")
	assert.Equal(t, []string{"ok", "ok"}, Successes(results))
	assert.Len(t, Errors(results), 1)
}

func TestRun_AllFailed(t *testing.T) {
	results, err := Run(context.Background(), []int{1, 2}, func(context.Context, int) (int, error) {
		return 0, core.NewError(core.KindUnavailable, "down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Equal(t, core.KindAllFailed, core.KindOf(err, core.KindInternal))

	var afe *AllFailedError
	require.ErrorAs(t, err, &afe)
	assert.Len(t, afe.Errors, 2)
	assert.Len(t, results, 2)
}

func TestRun_EmptyBatch(t *testing.T) {
	results, err := Run(context.Background(), []int{}, func(context.Context, int) (int, error) {
		t.Fatal("op must not run")
		return 0, nil
	})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestRun_PanicIsolated(t *testing.T) {
	results, err := Run(context.Background(), []int{0, 1, 2}, func(_ context.Context, n int) (int, error) {
		if n == 1 {
			panic("boom")
		}
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, results[0].Value)
	assert.Equal(t, 20, results[2].Value)
	var pe *PanicError
	require.ErrorAs(t, results[1].Err, &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestRun_MaxParallel(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 12)
	_, err := Run(context.Background(), items, func(context.Context, int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0, nil
	}, WithMaxParallel(3), WithName("test"))
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRun_CancellationObserved(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 4)
	go func() {
		<-started
		cancel()
	}()

	begin := time.Now()
	results, err := Run(ctx, []int{1, 2, 3, 4}, func(ctx context.Context, _ int) (int, error) {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 1, nil
		}
	})
	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.ErrorIs(t, err, context.Canceled)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRunProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("result length and slot order match the input", prop.ForAll(
		func(items []int) bool {
			results, _ := Run(context.Background(), items, func(_ context.Context, n int) (int, error) {
				if n%3 == 0 {
					return 0, errors.New("skip")
				}
				return n * 2, nil
			}, WithMaxParallel(4))
			if len(results) != len(items) {
				return false
			}
			for i, n := range items {
				if n%3 == 0 {
					if results[i].Err == nil {
						return false
					}
					continue
				}
				if results[i].Err != nil || results[i].Value != n*2 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
	))

	properties.Property("batch fails exactly when every item failed", prop.ForAll(
		func(fails []bool) bool {
			_, err := Run(context.Background(), fails, func(_ context.Context, fail bool) (bool, error) {
				if fail {
					return false, errors.New("fail")
				}
				return true, nil
			})
			allFailed := len(fails) > 0
			for _, f := range fails {
				if !f {
					allFailed = false
				}
			}
			return errors.Is(err, ErrAllFailed) == allFailed && (err == nil) == !allFailed
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
