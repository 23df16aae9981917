package services

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// defaultAnthropicMaxTokens bounds completion length when the caller does not
// configure one; the Anthropic API requires an explicit value.
const defaultAnthropicMaxTokens = 4096

// AnthropicClient implements the LLMClient interface for Anthropic's API.
// Anthropic has no server-side continuation, so prior history is always
// replayed; the returned message ID still serves as the turn's response
// identifier for bookkeeping.
type AnthropicClient struct {
	apiKey string
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client with lazy initialization.
// The actual Anthropic client is created only when the first request is made.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey: apiKey,
		client: nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *AnthropicClient) GetProviderName() string {
	return "anthropic"
}

// IsConfigured returns true if the client has a valid API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the Anthropic client if it hasn't been initialized yet.
func (c *AnthropicClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil // Already initialized
	}

	if c.apiKey == "" {
		return fmt.Errorf("anthropic API key not configured")
	}

	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", "anthropic")
	return nil
}

// SendChatCompletion sends one chat turn to Anthropic.
func (c *AnthropicClient) SendChatCompletion(ctx context.Context, req *playbooktypes.ChatRequest) (*playbooktypes.ChatResult, error) {
	logger.Debug("Anthropic SendChatCompletion starting", "model", req.Model)

	if err := c.initializeClientIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize Anthropic client: %w", err)
	}

	messages := c.convertRequestToMessages(req)
	logger.Debug("Messages converted", "message_count", len(messages))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultAnthropicMaxTokens,
		Messages:  messages,
	}

	if req.SystemMessage != nil && *req.SystemMessage != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: *req.SystemMessage},
		}
	}

	logger.Debug("Sending Anthropic request", "model", req.Model)
	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("Anthropic request failed", "error", err)
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	if len(message.Content) == 0 {
		logger.Error("No response content returned")
		return nil, fmt.Errorf("no response content returned")
	}

	// Concatenate all text blocks
	var content string
	for _, block := range message.Content {
		content += block.Text
	}

	if content == "" {
		logger.Error("Empty response content")
		return nil, fmt.Errorf("empty response content")
	}

	result := &playbooktypes.ChatResult{
		Content:    content,
		ResponseID: message.ID,
		Usage: playbooktypes.TokenUsage{
			Prompt:     int(message.Usage.InputTokens),
			Completion: int(message.Usage.OutputTokens),
			Total:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}

	logger.Debug("Anthropic response received", "content_length", len(content), "total_tokens", result.Usage.Total)
	return result, nil
}

// convertRequestToMessages converts the provider-agnostic request to Anthropic
// message parameters. History is always replayed, tool results rendered as
// user text, and the new turn appended last.
func (c *AnthropicClient) convertRequestToMessages(req *playbooktypes.ChatRequest) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+len(req.PreviousToolCalls)+1)

	for _, msg := range req.History {
		text := payloadText(msg.Payload)
		if text == "" {
			continue
		}
		switch msg.Role {
		case "user":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			// System turns ride in params.System; skip anything else.
			continue
		}
	}

	for _, msg := range req.PreviousToolCalls {
		if msg.Payload.Kind != playbooktypes.PayloadToolResult {
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(payloadText(msg.Payload))))
	}

	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserContent)))
	return messages
}
