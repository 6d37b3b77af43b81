// Package llm is the model capability consumed by the agent loop.
//
// It exposes a provider-agnostic blocking interface: build a Request from
// conversation messages and tool definitions, call Client.Complete, and get
// back a Response carrying text, tool calls, and token usage. Providers are
// plugged in as ProviderAdapter implementations; GollmAdapter covers the
// real hosted providers via gollm, and tests supply in-memory adapters.
//
// The package deliberately has no streaming surface. The agent loop always
// waits for one complete model turn before acting, so Complete is the whole
// contract.
//
// Errors returned by adapters are classified into a typed hierarchy
// (AuthenticationError, RateLimitError, ServerError, ...) so callers can
// decide between retrying and aborting with IsRetryable.
package llm
