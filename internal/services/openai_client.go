// Package services provides the chat pipeline, context assembly, and LLM
// client implementations for Agents Playbook.
package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// OpenAIClient implements the LLMClient interface for OpenAI's API via the
// /responses endpoint, which supports server-side conversation continuation
// through response identifiers.
type OpenAIClient struct {
	apiKey string
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client with lazy initialization.
// The actual OpenAI client is created only when the first request is made.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey: apiKey,
		client: nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *OpenAIClient) GetProviderName() string {
	return "openai"
}

// IsConfigured returns true if the client has a valid API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the OpenAI client if it hasn't been initialized yet.
func (c *OpenAIClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil // Already initialized
	}

	if c.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	client := openai.NewClient(option.WithAPIKey(c.apiKey))
	c.client = &client

	logger.Debug("OpenAI client initialized", "provider", "openai")
	return nil
}

// SendChatCompletion sends one chat turn to OpenAI. When the request carries a
// continuation identifier, prior history is not re-sent; the provider resumes
// the conversation server-side.
func (c *OpenAIClient) SendChatCompletion(ctx context.Context, req *playbooktypes.ChatRequest) (*playbooktypes.ChatResult, error) {
	logger.Debug("OpenAI SendChatCompletion starting", "model", req.Model)

	if err := c.initializeClientIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: c.convertRequestToInput(req),
	}

	if req.PreviousResponseID != "" {
		params.PreviousResponseID = openai.String(req.PreviousResponseID)
	}
	if req.SystemMessage != nil && *req.SystemMessage != "" {
		params.Instructions = openai.String(*req.SystemMessage)
	}

	logger.Debug("Sending OpenAI request", "model", req.Model, "continuation", req.PreviousResponseID != "")
	response, err := c.client.Responses.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI request failed", "error", err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(response.Output) == 0 {
		logger.Error("No response output items returned")
		return nil, fmt.Errorf("no response output items returned")
	}

	// Find message output items and concatenate their content
	var content string
	for _, item := range response.Output {
		if message := item.AsMessage(); message.Type == "message" && message.Role == "assistant" {
			for _, contentItem := range message.Content {
				if text := contentItem.AsOutputText(); text.Type == "output_text" {
					content += text.Text
				}
			}
		}
	}

	if content == "" {
		logger.Error("Empty response content")
		return nil, fmt.Errorf("empty response content")
	}

	result := &playbooktypes.ChatResult{
		Content:    content,
		ResponseID: response.ID,
		Usage: playbooktypes.TokenUsage{
			Prompt:     int(response.Usage.InputTokens),
			Completion: int(response.Usage.OutputTokens),
			Total:      int(response.Usage.TotalTokens),
		},
	}

	logger.Debug("OpenAI response received", "content_length", len(content), "response_id", response.ID, "total_tokens", result.Usage.Total)
	return result, nil
}

// convertRequestToInput converts the provider-agnostic request to the
// Responses API input format. With a continuation identifier only the new turn
// (plus any pending tool results) is sent; otherwise prior history is replayed.
func (c *OpenAIClient) convertRequestToInput(req *playbooktypes.ChatRequest) responses.ResponseNewParamsInputUnion {
	input := make(responses.ResponseInputParam, 0, len(req.History)+len(req.PreviousToolCalls)+1)

	if req.PreviousResponseID == "" {
		for _, msg := range req.History {
			var role responses.EasyInputMessageRole
			switch msg.Role {
			case "user":
				role = responses.EasyInputMessageRoleUser
			case "assistant":
				role = responses.EasyInputMessageRoleAssistant
			case "system":
				role = responses.EasyInputMessageRoleSystem
			default:
				// Skip unknown roles
				continue
			}
			if text := payloadText(msg.Payload); text != "" {
				input = append(input, responses.ResponseInputItemParamOfMessage(text, role))
			}
		}
	}

	// Replay pending tool results so the model sees them alongside the new turn.
	for _, msg := range req.PreviousToolCalls {
		if msg.Payload.Kind != playbooktypes.PayloadToolResult {
			continue
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(
			payloadText(msg.Payload),
			responses.EasyInputMessageRoleUser,
		))
	}

	input = append(input, responses.ResponseInputItemParamOfMessage(
		req.UserContent,
		responses.EasyInputMessageRoleUser,
	))

	return responses.ResponseNewParamsInputUnion{
		OfInputItemList: input,
	}
}

// payloadText renders a message payload as plain text for providers that only
// accept text input.
func payloadText(payload playbooktypes.MessagePayload) string {
	switch payload.Kind {
	case playbooktypes.PayloadText:
		return payload.Text
	case playbooktypes.PayloadToolCall:
		return fmt.Sprintf("Tool call %s: %s", payload.ToolName, payload.ToolCallID)
	case playbooktypes.PayloadToolResult:
		return fmt.Sprintf("Tool result (%s): %s", payload.ToolCallID, payload.ToolResult)
	default:
		return ""
	}
}
