package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmOption configures a GollmAdapter.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key for the adapter.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) {
		c.temperature = t
	}
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates an adapter for the given provider. If apiKey is
// empty, gollm reads it from the provider's environment variable.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmOption) (*GollmAdapter, error) {
	cfg := &gollmConfig{
		apiKey:      apiKey,
		maxTokens:   8192,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "openai":
			model = "gpt-4o-mini"
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		case "gemini", "google":
			model = "gemini-2.5-flash"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries belong to the Client's policy
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmAdapter{provider: provider, llm: inner, model: model}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM instance.
func NewGollmAdapterFromLLM(provider string, inner gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, llm: inner}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	return a.buildResponse(req, text), nil
}

// translateRequest converts a Request into a gollm Prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var userParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.TextContent() + "\n"
		case RoleUser:
			userParts = append(userParts, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				userParts = append(userParts, "[Assistant]: "+text)
			}
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind == ContentToolResult && part.ToolResult != nil {
					var content string
					_ = json.Unmarshal(part.ToolResult.Content, &content)
					if content == "" {
						content = string(part.ToolResult.Content)
					}
					prefix := "[Tool Result]"
					if part.ToolResult.IsError {
						prefix = "[Tool Error]"
					}
					userParts = append(userParts, prefix+": "+content)
				}
			}
		}
	}

	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	if len(req.ToolDefs) > 0 {
		tools := make([]gollm.Tool, 0, len(req.ToolDefs))
		for _, t := range req.ToolDefs {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}
	if req.ToolChoice != nil {
		promptOpts = append(promptOpts, gollm.WithToolChoice(req.ToolChoice.Mode))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a Response from generated text, extracting any
// tool calls gollm returned embedded in the text.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	var contentParts []ContentPart
	toolCalls := a.parseToolCalls(text)
	for _, tc := range toolCalls {
		tc := tc
		contentParts = append(contentParts, ContentPart{Kind: ContentToolCall, ToolCall: &tc})
	}

	cleaned := a.stripToolCallJSON(text, toolCalls)
	if cleaned != "" {
		contentParts = append([]ContentPart{TextPart(cleaned)}, contentParts...)
	}
	if len(contentParts) == 0 {
		contentParts = []ContentPart{TextPart(text)}
	}

	finishReason := FinishReason{Reason: "stop", Raw: "stop"}
	if len(toolCalls) > 0 {
		finishReason = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: a.provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: contentParts,
		},
		FinishReason: finishReason,
		Usage: Usage{
			// gollm does not expose provider usage; estimate from text size.
			InputTokens:  estimateTokens(req),
			OutputTokens: len(text) / 4,
			TotalTokens:  estimateTokens(req) + len(text)/4,
		},
	}
}

// parseToolCalls extracts tool calls from response text. gollm may return
// tool calls as a JSON array embedded in the text.
func (a *GollmAdapter) parseToolCalls(text string) []ToolCallData {
	start := strings.Index(text, `[{"name"`)
	if start == -1 {
		start = strings.Index(text, `{"tool_calls"`)
	}
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	var calls []ToolCallData
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err == nil {
		for _, rc := range rawCalls {
			calls = append(calls, ToolCallData{
				ID:        "call_" + uuid.New().String()[:8],
				Name:      rc.Name,
				Arguments: rc.Arguments,
			})
		}
	}
	return calls
}

// stripToolCallJSON removes parsed tool call JSON from the text.
func (a *GollmAdapter) stripToolCallJSON(text string, calls []ToolCallData) string {
	if len(calls) == 0 {
		return text
	}
	result := text
	for _, marker := range []string{`[{"name"`, `{"tool_calls"`} {
		if idx := strings.Index(result, marker); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

// translateError converts a gollm error into the typed error hierarchy.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid api key"):
		return &AuthenticationError{ProviderError: ProviderError{
			ModelError: ModelError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 401,
		}}
	case strings.Contains(msgLower, "403") || strings.Contains(msgLower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{
			ModelError: ModelError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 403,
		}}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			ModelError: ModelError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 404,
		}}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit") || strings.Contains(msgLower, "quota") || strings.Contains(msgLower, "resource_exhausted"):
		return &RateLimitError{ProviderError: ProviderError{
			ModelError: ModelError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{
			ModelError: ModelError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 413,
		}}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		return &ServerError{ProviderError: ProviderError{
			ModelError: ModelError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{ModelError: ModelError{Message: msg, Cause: err}}
	default:
		return &ProviderError{
			ModelError: ModelError{Message: msg, Cause: err},
			Provider:   a.provider,
			Retryable:  true,
		}
	}
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			if part.Kind == ContentText {
				total += len(part.Text) / 4
			}
		}
	}
	if total == 0 {
		total = 10
	}
	return total
}
