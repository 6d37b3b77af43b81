// Package agent implements the model-driven tool loop: it sends the
// conversation to the model, executes the tool calls it requests against a
// confined workspace, and feeds the results back until the model produces
// a final text answer or the iteration cap is reached.
//
// The loop is bounded on every axis: model calls and tool executions pass
// through sliding-window rate limiters, tool outputs are truncated before
// they re-enter the conversation, and repeated identical tool calls inject
// a corrective note that steers the model toward a different action.
package agent
