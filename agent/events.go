package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart      EventKind = "run_start"
	EventIteration     EventKind = "iteration"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventRateLimitWait EventKind = "rate_limit_wait"
	EventWarning       EventKind = "warning"
	EventError         EventKind = "error"
	EventRunEnd        EventKind = "run_end"
)

// Event is a typed notification emitted while a run is in progress.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers run events to the host over a buffered channel.
// Emission never blocks the loop: when the consumer falls behind, events
// are dropped.
type EventEmitter struct {
	runID  string
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(runID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	return &EventEmitter{
		runID: runID,
		ch:    make(chan Event, bufferSize),
	}
}

// Emit sends an event. Emitting on a closed emitter is a no-op.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	ev := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		RunID:     e.runID,
		Data:      data,
	}
	select {
	case e.ch <- ev:
	default:
		// Consumer is behind; drop rather than stall the run.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call more than once.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
