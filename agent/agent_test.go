package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/codeagent/llm"
)

// scriptedModel replays a fixed sequence of responses and records every
// request it sees. Once the script is exhausted the last response repeats.
type scriptedModel struct {
	responses []*llm.Response
	requests  []llm.Request
	calls     int
	mu        sync.Mutex
}

func (m *scriptedModel) Name() string { return "mock" }

func (m *scriptedModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	return m.responses[idx], nil
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		Model:        "test-model",
		Provider:     "mock",
		Message:      llm.AssistantMessage(text),
		FinishReason: llm.FinishReason{Reason: "stop"},
		Usage:        llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
}

func toolCallResponse(name string, args map[string]any) *llm.Response {
	raw, _ := json.Marshal(args)
	return &llm.Response{
		Model:        "test-model",
		Provider:     "mock",
		Message:      llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentPart{llm.ToolCallPart("call-"+name, name, raw)}},
		FinishReason: llm.FinishReason{Reason: "tool_calls"},
		Usage:        llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
}

func newTestAgent(t *testing.T, model *scriptedModel, mutate func(*Config)) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workspace = t.TempDir()
	cfg.Provider = "mock"
	cfg.Model = "test-model"
	if mutate != nil {
		mutate(&cfg)
	}
	client := llm.NewClient(llm.WithProvider("mock", model))
	a, err := New(cfg, client)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestRunExecutesToolsThenCompletes(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		toolCallResponse("list_files", map[string]any{"directory": "."}),
		toolCallResponse("read_file", map[string]any{"path": "README.md"}),
		textResponse("The project has a README describing the calculator."),
	}}
	a := newTestAgent(t, model, nil)
	require.NoError(t, os.WriteFile(filepath.Join(a.ws.Root(), "README.md"), []byte("# Calculator\n"), 0o644))

	result, err := a.Run(context.Background(), "describe the project")
	require.NoError(t, err)

	assert.Equal(t, "The project has a README describing the calculator.", result.Response)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 2, result.FunctionsCalled)
	assert.Equal(t, 45, result.TokensUsed)
	assert.False(t, result.HitIterationLimit)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"README.md"}, result.State.FilesRead)
}

func TestRunFeedsToolErrorsBackToModel(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		toolCallResponse("read_file", map[string]any{"path": "missing.txt"}),
		textResponse("The file does not exist."),
	}}
	a := newTestAgent(t, model, nil)

	result, err := a.Run(context.Background(), "read missing.txt")
	require.NoError(t, err)

	assert.Equal(t, "The file does not exist.", result.Response)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "read_file:")
	require.Len(t, result.State.Errors, 1)
	assert.Equal(t, "file_not_found", result.State.Errors[0].ErrorCode)
}

func TestRunHitsIterationLimit(t *testing.T) {
	// A fresh argument each call keeps the repeat detector quiet.
	var responses []*llm.Response
	for i := 0; i < 5; i++ {
		responses = append(responses, toolCallResponse("list_files", map[string]any{"directory": fmt.Sprintf("d%d", i)}))
	}
	model := &scriptedModel{responses: responses}
	a := newTestAgent(t, model, func(cfg *Config) { cfg.MaxIterations = 3 })

	result, err := a.Run(context.Background(), "keep going")
	require.NoError(t, err)

	assert.True(t, result.HitIterationLimit)
	assert.Equal(t, "Maximum iterations reached without completion", result.Response)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, result.FunctionsCalled)
}

func TestRunWarnsOnRepeatedToolCallsAndContinues(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		toolCallResponse("list_files", map[string]any{"directory": "."}),
		toolCallResponse("list_files", map[string]any{"directory": "."}),
		toolCallResponse("list_files", map[string]any{"directory": "."}),
		toolCallResponse("list_files", map[string]any{"directory": "."}),
		textResponse("done"),
	}}
	a := newTestAgent(t, model, func(cfg *Config) { cfg.LoopDetectionWindow = 4 })

	result, err := a.Run(context.Background(), "loop for a while")
	require.NoError(t, err)
	a.Close()

	// Detection never ends the run; the model still reaches its answer.
	assert.Equal(t, "done", result.Response)
	assert.Equal(t, 5, result.Iterations)
	assert.False(t, result.HitIterationLimit)

	var warned bool
	for ev := range a.Events() {
		if ev.Kind == EventWarning {
			warned = true
			assert.Equal(t, "repeated_tool_calls", ev.Data["reason"])
		}
	}
	assert.True(t, warned, "detection must surface a warning event")

	// The corrective note is injected into the conversation the model sees
	// on the iteration after detection.
	last := model.requests[len(model.requests)-1]
	var noticed bool
	for _, msg := range last.Messages {
		if msg.Role == llm.RoleUser && strings.Contains(msg.TextContent(), "repeated the same tool calls") {
			noticed = true
		}
	}
	assert.True(t, noticed, "conversation must carry the corrective note")
}

type failingModel struct {
	err error
}

func (m *failingModel) Name() string { return "mock" }

func (m *failingModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, m.err
}

func TestRunReportsAuthenticationFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workspace = t.TempDir()
	cfg.Provider = "mock"
	client := llm.NewClient(llm.WithProvider("mock", &failingModel{
		err: &llm.AuthenticationError{ProviderError: llm.ProviderError{
			ModelError: llm.ModelError{Message: "bad key"},
			StatusCode: 401,
		}},
	}))
	a, err := New(cfg, client)
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Run(context.Background(), "anything")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "API Authentication Error")
	assert.Equal(t, 1, result.Iterations)
	require.Len(t, result.Errors, 1)
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		toolCallResponse("list_files", map[string]any{"directory": "."}),
		textResponse("done"),
	}}
	a := newTestAgent(t, model, nil)

	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	a.Close()

	var kinds []EventKind
	for ev := range a.Events() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, EventRunStart, kinds[0])
	assert.Contains(t, kinds, EventToolCallStart)
	assert.Contains(t, kinds, EventToolCallEnd)
	assert.Equal(t, EventRunEnd, kinds[len(kinds)-1])
}
