package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/codeagent/llm"
	"github.com/martinemde/codeagent/ratelimit"
	"github.com/martinemde/codeagent/session"
	"github.com/martinemde/codeagent/workspace"
)

func newTestExecutor(t *testing.T) (*Executor, *session.Tracker) {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), workspace.Limits{})
	require.NoError(t, err)
	tracker := session.NewTracker()
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	return NewExecutor(ws, tracker, limiter, nil), tracker
}

func call(name string, args map[string]any) llm.ToolCall {
	raw, _ := json.Marshal(args)
	return llm.ToolCall{ID: "call-" + name, Name: name, Arguments: raw}
}

func TestExecuteRegistersAllBuiltins(t *testing.T) {
	e, _ := newTestExecutor(t)
	assert.Equal(t, 8, e.Registry().Count())
	for _, name := range []string{
		"read_file", "write_file", "list_files", "create_directory",
		"search_files", "git_status", "git_diff", "git_commit",
	} {
		assert.NotNil(t, e.Registry().Get(name), name)
	}
}

func TestExecuteWriteThenRead(t *testing.T) {
	e, tracker := newTestExecutor(t)
	ctx := context.Background()

	res, err := e.Execute(ctx, call("write_file", map[string]any{"path": "hello.txt", "content": "hi"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Successfully wrote 2 characters to hello.txt", res.Content)

	res, err = e.Execute(ctx, call("read_file", map[string]any{"path": "hello.txt"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "hi", res.Content)

	state := tracker.Snapshot()
	assert.Equal(t, []string{"hello.txt"}, state.FilesRead)
	assert.Equal(t, []string{"hello.txt"}, state.FilesWritten)
}

func TestExecuteUnknownFunction(t *testing.T) {
	e, tracker := newTestExecutor(t)

	res, err := e.Execute(context.Background(), call("delete_everything", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	assert.Equal(t, "function_not_found", payload["error_code"])

	state := tracker.Snapshot()
	require.Len(t, state.Errors, 1)
	assert.Equal(t, "function_not_found", state.Errors[0].ErrorCode)
}

func TestExecuteToolFailureBecomesErrorResult(t *testing.T) {
	e, tracker := newTestExecutor(t)

	res, err := e.Execute(context.Background(), call("read_file", map[string]any{"path": "nope.txt"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	assert.Equal(t, "file_not_found", payload["error_code"])
	assert.NotEmpty(t, payload["suggestions"])

	state := tracker.Snapshot()
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0].Message, "read_file:")
}

func TestExecuteBatchPreservesOrder(t *testing.T) {
	e, tracker := newTestExecutor(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.Execute(ctx, call("write_file", map[string]any{
			"path":    fmt.Sprintf("f%d.txt", i),
			"content": fmt.Sprintf("needle %d", i),
		}))
		require.NoError(t, err)
	}

	calls := make([]llm.ToolCall, 5)
	for i := range calls {
		raw, _ := json.Marshal(map[string]any{"pattern": fmt.Sprintf("needle %d", i)})
		calls[i] = llm.ToolCall{ID: fmt.Sprintf("call-%d", i), Name: "search_files", Arguments: raw}
	}

	results, err := e.ExecuteBatch(ctx, calls)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("call-%d", i), res.CallID)
		assert.False(t, res.IsError)
		assert.Contains(t, res.Content, fmt.Sprintf("needle %d", i))
	}

	assert.Equal(t, 5, tracker.Snapshot().SearchesPerformed)
}

func TestExecuteBatchTenConcurrentSearches(t *testing.T) {
	e, tracker := newTestExecutor(t)
	_, err := e.Execute(context.Background(), call("write_file", map[string]any{"path": "a.txt", "content": "needle"}))
	require.NoError(t, err)

	calls := make([]llm.ToolCall, 10)
	for i := range calls {
		raw, _ := json.Marshal(map[string]any{"pattern": fmt.Sprintf("needle|x%d", i)})
		calls[i] = llm.ToolCall{ID: fmt.Sprintf("c%d", i), Name: "search_files", Arguments: raw}
	}

	results, err := e.ExecuteBatch(context.Background(), calls)
	require.NoError(t, err)
	require.Len(t, results, 10)

	assert.Equal(t, 10, tracker.Snapshot().SearchesPerformed)
}

func TestExecuteHonorsToolRateLimitContext(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), workspace.Limits{})
	require.NoError(t, err)
	e := NewExecutor(ws, session.NewTracker(), ratelimit.NewLimiter(1, time.Hour), nil)

	ctx := context.Background()
	_, err = e.Execute(ctx, call("list_files", map[string]any{"directory": "."}))
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = e.Execute(shortCtx, call("list_files", map[string]any{"directory": "."}))
	require.Error(t, err)
}
