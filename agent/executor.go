package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/martinemde/codeagent/llm"
	"github.com/martinemde/codeagent/ratelimit"
	"github.com/martinemde/codeagent/session"
	"github.com/martinemde/codeagent/workspace"
)

// Executor dispatches tool calls against a workspace, enforcing the tool
// rate limit and recording every outcome in the session tracker.
type Executor struct {
	ws      *workspace.Workspace
	scanner *workspace.SecretScanner
	tracker *session.Tracker
	limiter *ratelimit.Limiter
	reg     *Registry
	logger  *slog.Logger
}

// NewExecutor builds an executor with the eight built-in workspace tools
// registered.
func NewExecutor(ws *workspace.Workspace, tracker *session.Tracker, limiter *ratelimit.Limiter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		ws:      ws,
		scanner: workspace.NewSecretScanner(ws),
		tracker: tracker,
		limiter: limiter,
		reg:     NewRegistry(),
		logger:  logger,
	}
	e.registerBuiltins()
	return e
}

// Registry exposes the tool registry, e.g. to add host-specific tools.
func (e *Executor) Registry() *Registry {
	return e.reg
}

// ToolResult is the outcome of a single dispatched tool call.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Execute runs one tool call end to end: rate limit, handler, recording.
// Tool failures are returned as an error-shaped ToolResult, never as a Go
// error; only context cancellation aborts the dispatch.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) (ToolResult, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return ToolResult{}, err
	}

	res := ToolResult{CallID: call.ID, Name: call.Name}

	tool := e.reg.Get(call.Name)
	if tool == nil {
		te := &workspace.ToolError{
			Code:        workspace.ErrFunctionNotFound,
			Message:     fmt.Sprintf("Unknown function: %s", call.Name),
			Suggestions: []string{"Available functions: " + strings.Join(e.reg.Names(), ", ")},
			Context:     map[string]any{"requested_function": call.Name},
		}
		e.recordFailure(call.Name, te)
		res.Content = encodeToolError(te)
		res.IsError = true
		return res, nil
	}

	args, err := ParseToolArguments(call.Arguments)
	if err != nil {
		te := &workspace.ToolError{
			Code:        workspace.ErrInvalidPath,
			Message:     fmt.Sprintf("Malformed arguments for %s: %v", call.Name, err),
			Suggestions: []string{"Pass arguments as a JSON object"},
			Context:     map[string]any{"function": call.Name},
		}
		e.recordFailure(call.Name, te)
		res.Content = encodeToolError(te)
		res.IsError = true
		return res, nil
	}

	output, err := tool.Handler(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return ToolResult{}, err
		}
		te, ok := workspace.AsToolError(err)
		if !ok {
			te = &workspace.ToolError{
				Code:    workspace.ErrGitError,
				Message: err.Error(),
				Context: map[string]any{"function": call.Name},
			}
		}
		e.recordFailure(call.Name, te)
		e.logger.Error("tool failed",
			"function", call.Name,
			"error_code", string(te.Code),
			"error", te.Message)
		res.Content = encodeToolError(te)
		res.IsError = true
		return res, nil
	}

	e.logger.Info("tool executed", "function", call.Name, "result_length", len(output))
	res.Content = output
	return res, nil
}

// ExecuteBatch dispatches a set of tool calls concurrently. Results are
// returned in call order regardless of completion order.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []llm.ToolCall) ([]ToolResult, error) {
	results := make([]ToolResult, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			res, err := e.Execute(ctx, call)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Executor) recordFailure(function string, te *workspace.ToolError) {
	e.tracker.AddError(session.Failure{
		ErrorCode:   string(te.Code),
		Message:     fmt.Sprintf("%s: %s", function, te.Message),
		Suggestions: te.Suggestions,
		Context:     te.Context,
	})
}

// encodeToolError renders a ToolError as the JSON object fed back to the
// model.
func encodeToolError(te *workspace.ToolError) string {
	payload := map[string]any{
		"error_code":  string(te.Code),
		"message":     te.Message,
		"suggestions": te.Suggestions,
		"context":     te.Context,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error_code":%q,"message":%q}`, te.Code, te.Message)
	}
	return string(data)
}

func (e *Executor) registerBuiltins() {
	defs := builtinDefinitions()

	e.reg.Register(RegisteredTool{
		Definition: defs["read_file"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := StringArg(args, "path")
			maxChars, ok := IntArg(args, "max_chars")
			if !ok {
				maxChars = 10000
			}
			content, err := e.ws.ReadFile(path, maxChars)
			if err != nil {
				return "", err
			}
			e.tracker.AddFileRead(path)
			return content, nil
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["write_file"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := StringArg(args, "path")
			content, _ := StringArg(args, "content")
			msg, err := e.ws.WriteFile(path, content)
			if err != nil {
				return "", err
			}
			e.tracker.AddFileWritten(path)
			return msg, nil
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["list_files"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			directory, ok := StringArg(args, "directory")
			if !ok || directory == "" {
				directory = "."
			}
			return e.ws.ListFiles(directory)
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["create_directory"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := StringArg(args, "path")
			recursive, ok := BoolArg(args, "recursive")
			if !ok {
				recursive = true
			}
			return e.ws.CreateDirectory(path, recursive)
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["search_files"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := StringArg(args, "pattern")
			extensions, _ := StringSliceArg(args, "file_extensions")
			caseSensitive, _ := BoolArg(args, "case_sensitive")
			maxResults, ok := IntArg(args, "max_results")
			if !ok {
				maxResults = 50
			}
			res, err := e.ws.SearchFiles(pattern, extensions, caseSensitive, maxResults)
			if err != nil {
				return "", err
			}
			e.tracker.AddSearch(session.SearchRecord{
				Pattern:      pattern,
				Extensions:   extensions,
				Results:      res.Matches,
				FilesScanned: res.FilesScanned,
			})
			return res.Output, nil
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["git_status"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			out, err := e.ws.GitStatus(ctx)
			if err != nil {
				return "", err
			}
			e.tracker.AddCommandRun()
			return out, nil
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["git_diff"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			filePath, _ := StringArg(args, "file_path")
			out, err := e.ws.GitDiff(ctx, filePath)
			if err != nil {
				return "", err
			}
			e.tracker.AddCommandRun()
			return out, nil
		},
	})

	e.reg.Register(RegisteredTool{
		Definition: defs["git_commit"],
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			message, _ := StringArg(args, "message")
			addAll, _ := BoolArg(args, "add_all")
			out, err := e.ws.GitCommit(ctx, message, addAll, e.scanner)
			if err != nil {
				return "", err
			}
			e.tracker.AddCommandRun()
			return out, nil
		},
	})
}
