package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// GeminiClient implements the LLMClient interface for Google Gemini. Like
// Anthropic, Gemini has no server-side continuation, so history is always
// replayed.
type GeminiClient struct {
	apiKey string
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client with lazy initialization.
// The actual Gemini client is created only when the first request is made.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		client: nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *GeminiClient) GetProviderName() string {
	return "gemini"
}

// IsConfigured returns true if the client has a valid API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the Gemini client if it hasn't been initialized yet.
func (c *GeminiClient) initializeClientIfNeeded(ctx context.Context) error {
	if c.client != nil {
		return nil // Already initialized
	}

	if c.apiKey == "" {
		return fmt.Errorf("google API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	logger.Debug("Gemini client initialized", "provider", "gemini")
	return nil
}

// SendChatCompletion sends one chat turn to Google Gemini.
func (c *GeminiClient) SendChatCompletion(ctx context.Context, req *playbooktypes.ChatRequest) (*playbooktypes.ChatResult, error) {
	logger.Debug("Gemini SendChatCompletion starting", "model", req.Model)

	if err := c.initializeClientIfNeeded(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	contents := c.convertRequestToContents(req)
	logger.Debug("Messages converted", "content_count", len(contents))

	config := &genai.GenerateContentConfig{}
	if req.SystemMessage != nil && *req.SystemMessage != "" {
		config.SystemInstruction = genai.NewContentFromText(*req.SystemMessage, genai.RoleUser)
	}

	logger.Debug("Sending Gemini request", "model", req.Model)
	result, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		logger.Error("Gemini request failed", "error", err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		logger.Error("No response candidates returned")
		return nil, fmt.Errorf("no response candidates returned")
	}

	var content string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Thought {
			// Thinking parts are not conversational content.
			continue
		}
		content += part.Text
	}

	if content == "" {
		logger.Error("Empty response content")
		return nil, fmt.Errorf("empty response content")
	}

	usage := playbooktypes.TokenUsage{}
	if result.UsageMetadata != nil {
		usage.Prompt = int(result.UsageMetadata.PromptTokenCount)
		usage.Completion = int(result.UsageMetadata.CandidatesTokenCount)
		usage.Total = int(result.UsageMetadata.TotalTokenCount)
	}

	chatResult := &playbooktypes.ChatResult{
		Content:    content,
		ResponseID: result.ResponseID,
		Usage:      usage,
	}

	logger.Debug("Gemini response received", "content_length", len(content), "total_tokens", usage.Total)
	return chatResult, nil
}

// convertRequestToContents converts the provider-agnostic request to Gemini
// content format. Gemini uses "model" instead of "assistant".
func (c *GeminiClient) convertRequestToContents(req *playbooktypes.ChatRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+len(req.PreviousToolCalls)+1)

	for _, msg := range req.History {
		text := payloadText(msg.Payload)
		if text == "" {
			continue
		}

		var role string
		switch msg.Role {
		case "user":
			role = "user"
		case "assistant":
			role = "model"
		case "system":
			role = "user"
			text = "System: " + text
		default:
			// Skip unknown roles
			continue
		}

		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
			Role:  role,
		})
	}

	for _, msg := range req.PreviousToolCalls {
		if msg.Payload.Kind != playbooktypes.PayloadToolResult {
			continue
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: payloadText(msg.Payload)}},
			Role:  "user",
		})
	}

	contents = append(contents, &genai.Content{
		Parts: []*genai.Part{{Text: req.UserContent}},
		Role:  "user",
	})

	return contents
}
