package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/martinemde/codeagent/llm"
	"github.com/martinemde/codeagent/ratelimit"
	"github.com/martinemde/codeagent/session"
	"github.com/martinemde/codeagent/workspace"
)

// RunResult is the final outcome of one agent run.
type RunResult struct {
	Response          string
	Iterations        int
	TokensUsed        int
	FunctionsCalled   int
	Errors            []string
	HitIterationLimit bool
	State             session.State
}

// Summary renders the session activity report.
func (r *RunResult) Summary() string {
	return r.State.Summary()
}

// Agent drives the model/tool loop against one workspace.
type Agent struct {
	cfg        Config
	client     *llm.Client
	ws         *workspace.Workspace
	tracker    *session.Tracker
	exec       *Executor
	apiLimiter *ratelimit.Limiter
	emitter    *EventEmitter
	logger     *slog.Logger
	prompt     string
}

// Option customizes an Agent.
type Option func(*Agent)

// WithLogger sets the structured logger for the run.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.prompt = prompt }
}

// New builds an Agent: workspace, tracker, limiters, and executor wired
// from cfg.
func New(cfg Config, client *llm.Client, opts ...Option) (*Agent, error) {
	cfg = cfg.withDefaults()

	ws, err := workspace.New(cfg.Workspace, cfg.Limits.toWorkspace())
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:     cfg,
		client:  client,
		ws:      ws,
		tracker: session.NewTracker(),
		emitter: NewEventEmitter(uuid.New().String(), 128),
		logger:  slog.Default(),
		prompt:  SystemPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.apiLimiter = ratelimit.NewLimiter(cfg.APIRate.MaxCalls, cfg.APIRate.Period(),
		ratelimit.WithWaitHook(a.rateLimitWaitHook("api")))
	toolLimiter := ratelimit.NewLimiter(cfg.ToolRate.MaxCalls, cfg.ToolRate.Period(),
		ratelimit.WithWaitHook(a.rateLimitWaitHook("tool")))
	a.exec = NewExecutor(ws, a.tracker, toolLimiter, a.logger)
	return a, nil
}

// rateLimitWaitHook surfaces limiter sleeps as run events so hosts can show
// throttling progress.
func (a *Agent) rateLimitWaitHook(surface string) func(time.Duration) {
	return func(retryAfter time.Duration) {
		a.emitter.Emit(EventRateLimitWait, map[string]any{
			"surface":     surface,
			"retry_after": retryAfter.String(),
		})
	}
}

// Executor returns the tool executor, e.g. to register extra tools before
// a run.
func (a *Agent) Executor() *Executor {
	return a.exec
}

// Events returns the run event channel.
func (a *Agent) Events() <-chan Event {
	return a.emitter.Events()
}

// Close releases the event channel.
func (a *Agent) Close() {
	a.emitter.Close()
}

// Run executes the loop for one user prompt until the model answers in
// plain text, an unrecoverable error occurs, or the iteration cap is hit.
func (a *Agent) Run(ctx context.Context, userPrompt string) (*RunResult, error) {
	a.logger.Info("starting agent run",
		"prompt", clip(userPrompt, 100),
		"max_iterations", a.cfg.MaxIterations)
	a.emitter.Emit(EventRunStart, map[string]any{"prompt": clip(userPrompt, 100)})

	messages := []llm.Message{
		llm.SystemMessage(a.prompt),
		llm.UserMessage(userPrompt),
	}
	toolDefs := a.exec.Registry().Definitions()
	temperature := 0.2
	maxTokens := 8192

	totalTokens := 0
	functionsCalled := 0
	var sigs []string

	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		a.logger.Info("agent iteration", "iteration", iteration)
		a.emitter.Emit(EventIteration, map[string]any{"iteration": iteration})

		if err := a.apiLimiter.Acquire(ctx); err != nil {
			return a.finish(fmt.Sprintf("Error: %v", err), iteration, totalTokens, functionsCalled, false), nil
		}

		resp, err := a.client.Complete(ctx, llm.Request{
			Model:       a.cfg.Model,
			Provider:    a.cfg.Provider,
			Messages:    messages,
			ToolDefs:    toolDefs,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			msg := a.describeModelError(err)
			a.emitter.Emit(EventError, map[string]any{"error": err.Error()})
			a.tracker.AddError(session.Failure{ErrorCode: "model_error", Message: err.Error()})
			return a.finish(msg, iteration, totalTokens, functionsCalled, false), nil
		}

		totalTokens += resp.Usage.TotalTokens
		a.logger.Info("token usage",
			"iteration", iteration,
			"prompt_tokens", resp.Usage.InputTokens,
			"response_tokens", resp.Usage.OutputTokens,
			"total_tokens", totalTokens)

		messages = append(messages, resp.Message)

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			a.logger.Info("agent completed",
				"iterations", iteration,
				"total_tokens", totalTokens,
				"functions_called", functionsCalled)
			return a.finish(resp.Text(), iteration, totalTokens, functionsCalled, false), nil
		}

		for _, call := range calls {
			sigs = append(sigs, callSignature(call.Name, call.Arguments))
		}
		repeated := detectRepeat(sigs, a.cfg.LoopDetectionWindow)
		if repeated {
			a.logger.Warn("repeated tool calls detected", "iteration", iteration)
			a.emitter.Emit(EventWarning, map[string]any{
				"reason":    "repeated_tool_calls",
				"iteration": iteration,
			})
			// Start the window fresh so the same pattern does not re-fire
			// on every subsequent iteration.
			sigs = sigs[:0]
		}

		names := make([]string, len(calls))
		for i, call := range calls {
			names[i] = call.Name
			a.emitter.Emit(EventToolCallStart, map[string]any{"function": call.Name, "call_id": call.ID})
		}
		a.logger.Info("executing function calls", "count", len(calls), "functions", names)
		functionsCalled += len(calls)

		results, err := a.exec.ExecuteBatch(ctx, calls)
		if err != nil {
			a.emitter.Emit(EventError, map[string]any{"error": err.Error()})
			return a.finish(fmt.Sprintf("Error: %v", err), iteration, totalTokens, functionsCalled, false), nil
		}

		for _, res := range results {
			a.emitter.Emit(EventToolCallEnd, map[string]any{
				"function": res.Name,
				"call_id":  res.CallID,
				"is_error": res.IsError,
			})
			content := TruncateToolOutput(res.Content, res.Name)
			messages = append(messages, llm.ToolResultMessage(res.CallID, res.Name, content, res.IsError))
		}

		if repeated {
			messages = append(messages, llm.UserMessage(repeatNotice))
		}
	}

	a.logger.Warn("maximum iterations reached", "max_iterations", a.cfg.MaxIterations)
	return a.finish(
		"Maximum iterations reached without completion",
		a.cfg.MaxIterations, totalTokens, functionsCalled, true), nil
}

func (a *Agent) finish(response string, iterations, tokens, functionsCalled int, hitLimit bool) *RunResult {
	state := a.tracker.Snapshot()
	errs := make([]string, 0, len(state.Errors))
	for _, f := range state.Errors {
		errs = append(errs, f.Message)
	}
	a.emitter.Emit(EventRunEnd, map[string]any{
		"iterations":       iterations,
		"tokens_used":      tokens,
		"functions_called": functionsCalled,
		"errors":           len(errs),
	})
	return &RunResult{
		Response:          response,
		Iterations:        iterations,
		TokensUsed:        tokens,
		FunctionsCalled:   functionsCalled,
		Errors:            errs,
		HitIterationLimit: hitLimit,
		State:             state,
	}
}

// describeModelError turns an unrecoverable model error into a message the
// user can act on.
func (a *Agent) describeModelError(err error) string {
	var rateErr *llm.RateLimitError
	if errors.As(err, &rateErr) {
		return "API Quota Exceeded\n\n" +
			"The model API key has exceeded its quota. Please:\n" +
			"1. Check your API quota with the provider\n" +
			"2. Wait for the quota to reset, or\n" +
			"3. Upgrade your API plan\n\n" +
			fmt.Sprintf("Technical details: %v", err)
	}

	var authErr *llm.AuthenticationError
	var accessErr *llm.AccessDeniedError
	if errors.As(err, &authErr) || errors.As(err, &accessErr) {
		return "API Authentication Error\n\n" +
			"There's an issue with your API key. Please:\n" +
			"1. Verify the API key environment variable is set\n" +
			"2. Get a new key from your provider if needed\n\n" +
			fmt.Sprintf("Technical details: %v", err)
	}

	return fmt.Sprintf("Error: %v", err)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
