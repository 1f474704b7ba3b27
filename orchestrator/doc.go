// Package orchestrator drives one conversational turn: it resolves the mode,
// streams the model's answer, dispatches the tool calls the model requests
// and feeds their results back until the model produces a final answer or a
// bound is hit.
//
// Every turn is reported as an ordered stream of core.Event values that ends
// with exactly one terminal event (Done or Error). Callers must drain the
// channel returned by Run until it is closed.
package orchestrator
