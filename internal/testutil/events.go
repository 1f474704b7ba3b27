package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
)

// CollectTimeout bounds how long Collect waits for a stream to close.
var CollectTimeout = 5 * time.Second

// Collect drains ch until it is closed and returns the events in order.
// The test fails if the stream does not close within CollectTimeout.
func Collect(t testing.TB, ch <-chan core.Event) []core.Event {
	t.Helper()
	var events []core.Event
	deadline := time.After(CollectTimeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			require.FailNow(t, "event stream did not close", "received %d events", len(events))
			return events
		}
	}
}

// Text concatenates the text deltas of events.
func Text(events []core.Event) string {
	var s string
	for _, ev := range events {
		if ev.Type == core.EventTextDelta {
			s += ev.Text
		}
	}
	return s
}

// ToolResults returns the tool results of events in emission order.
func ToolResults(events []core.Event) []core.FunctionResponse {
	var out []core.FunctionResponse
	for _, ev := range events {
		if ev.Type == core.EventToolResult && ev.ToolResult != nil {
			out = append(out, *ev.ToolResult)
		}
	}
	return out
}

// AssertSequential checks the stream invariants: sequence numbers start at
// one and increase by one, every event shares the turn id, and exactly the
// last event is terminal.
func AssertSequential(t testing.TB, events []core.Event) {
	t.Helper()
	require.NotEmpty(t, events)
	turnID := events[0].TurnID
	for i, ev := range events {
		require.Equal(t, int64(i+1), ev.Seq, "event %d", i)
		require.Equal(t, turnID, ev.TurnID, "event %d", i)
		require.Equal(t, i == len(events)-1, ev.IsTerminal(), "event %d", i)
	}
}

// NewDeltaStream returns a closed channel carrying a text delta per chunk
// followed by a Done event, numbered like an orchestrator stream.
func NewDeltaStream(turnID string, chunks ...string) <-chan core.Event {
	ch := make(chan core.Event, len(chunks)+1)
	var seq int64
	for _, c := range chunks {
		seq++
		ev := core.NewTextDeltaEvent(turnID, c)
		ev.Seq = seq
		ch <- ev
	}
	done := core.NewDoneEvent(turnID, core.Completion{Reason: core.FinishStop, Steps: 1})
	done.Seq = seq + 1
	ch <- done
	close(ch)
	return ch
}
