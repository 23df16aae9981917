// Package playbooktypes defines the shared domain types for Agents Playbook.
// This file contains LLM client abstractions shared by the provider
// implementations (OpenAI, Anthropic, Gemini).
package playbooktypes

import "context"

// TokenUsage reports the token counts of a single model call.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ToolInvocation is one tool call surfaced by the model, with its result when
// the provider executed it server-side.
type ToolInvocation struct {
	CallID    string                 `json:"call_id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    string                 `json:"result,omitempty"`
}

// ChatRequest is the provider-agnostic input to a model call. History holds
// prior turns only when no continuation identifier is available; when
// PreviousResponseID is set, providers that support server-side continuation
// resume from it instead of re-sending history.
type ChatRequest struct {
	Model              string
	SystemMessage      *string
	UserContent        string
	History            []Message
	PreviousResponseID string
	PreviousToolCalls  []Message
}

// ChatResult is the provider-agnostic output of a model call.
type ChatResult struct {
	Content    string           `json:"content"`
	ResponseID string           `json:"response_id,omitempty"`
	Usage      TokenUsage       `json:"usage"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
}

// LLMClient defines the interface for LLM provider implementations. It
// abstracts the hosted providers and gives the pipeline a single way to send
// an assembled prompt.
type LLMClient interface {
	// SendChatCompletion sends one chat turn and returns the full response.
	// The caller's context bounds the call; on cancellation no result is
	// returned and nothing is persisted.
	SendChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// GetProviderName returns the provider name (e.g. "openai", "anthropic").
	GetProviderName() string

	// IsConfigured returns true if the client holds a usable API key.
	IsConfigured() bool
}

// ClientFactory creates and caches LLM clients per (provider, API key) pair.
type ClientFactory interface {
	// GetClientForProvider returns a client for the given provider name and
	// API key, reusing a cached instance when one exists.
	GetClientForProvider(provider, apiKey string) (LLMClient, error)
}
