package services

import (
	"context"
	"time"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// ChatTurnRequest is the caller-facing input for one chat turn.
type ChatTurnRequest struct {
	UserID                 string                    `json:"user_id"`
	ChatID                 string                    `json:"chat_id,omitempty"`
	Mode                   playbooktypes.SessionMode `json:"mode"`
	Message                string                    `json:"message"`
	APIKey                 string                    `json:"api_key"`
	Provider               string                    `json:"provider,omitempty"`
	Model                  string                    `json:"model,omitempty"`
	WorkflowID             string                    `json:"workflow_id,omitempty"`
	MiniPromptID           string                    `json:"mini_prompt_id,omitempty"`
	ViewedMiniPromptID     string                    `json:"viewed_mini_prompt_id,omitempty"`
	IncludeExtendedContext bool                      `json:"include_extended_context,omitempty"`
}

// ChatTurnResponse is the caller-facing result of a successful turn.
type ChatTurnResponse struct {
	ChatID             string                   `json:"chat_id"`
	Content            string                   `json:"content"`
	ResponseID         string                   `json:"response_id,omitempty"`
	Usage              playbooktypes.TokenUsage `json:"usage"`
	AutoResetTriggered bool                     `json:"auto_reset_triggered"`
}

// ChatService is the caller-facing entry point of the chat subsystem. It owns
// the pipeline wiring; every dependency is injected so tests can substitute
// doubles for the store, registry, builder, and client factory.
type ChatService struct {
	pipeline        *Pipeline
	defaultProvider string
	defaultModel    string
	timeout         time.Duration
}

// ChatServiceConfig carries the dependencies and settings for a ChatService.
type ChatServiceConfig struct {
	Store           playbooktypes.MessageStore
	Registry        playbooktypes.SessionRegistry
	Builder         *ContextBuilder
	Factory         playbooktypes.ClientFactory
	Manager         *AutoResetManager
	DefaultProvider string
	DefaultModel    string
	// Timeout bounds each model call; zero means the caller's context is the
	// only bound.
	Timeout time.Duration
}

// NewChatService wires the pipeline in its canonical step order.
func NewChatService(cfg ChatServiceConfig) *ChatService {
	pipeline := NewPipeline(
		NewPrepareDataStep(),
		NewResolveSessionStep(cfg.Registry),
		NewCheckAutoResetStep(cfg.Manager, cfg.Store),
		NewBuildContextStep(cfg.Builder),
		NewCallModelStep(cfg.Factory, cfg.Store),
		NewPersistResultStep(cfg.Store),
	)

	return &ChatService{
		pipeline:        pipeline,
		defaultProvider: cfg.DefaultProvider,
		defaultModel:    cfg.DefaultModel,
		timeout:         cfg.Timeout,
	}
}

// HandleTurn runs one user message through the pipeline and returns the
// assistant turn, or the single error that aborted the run.
func (s *ChatService) HandleTurn(ctx context.Context, req *ChatTurnRequest) (*ChatTurnResponse, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	provider := req.Provider
	if provider == "" {
		provider = s.defaultProvider
	}
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	pc := playbooktypes.PipelineContext{
		UserID:                 req.UserID,
		ChatID:                 req.ChatID,
		Mode:                   req.Mode,
		Message:                req.Message,
		APIKey:                 req.APIKey,
		Provider:               provider,
		Model:                  model,
		WorkflowID:             req.WorkflowID,
		MiniPromptID:           req.MiniPromptID,
		ViewedMiniPromptID:     req.ViewedMiniPromptID,
		IncludeExtendedContext: req.IncludeExtendedContext,
	}

	result, err := s.pipeline.Execute(ctx, pc)
	if err != nil {
		return nil, err
	}

	logger.Info("Chat turn completed",
		"chat_id", result.ChatID,
		"total_tokens", result.Reply.Usage.Total,
		"auto_reset", result.AutoResetTriggered)

	return &ChatTurnResponse{
		ChatID:             result.ChatID,
		Content:            result.Reply.Content,
		ResponseID:         result.Reply.ResponseID,
		Usage:              result.Reply.Usage,
		AutoResetTriggered: result.AutoResetTriggered,
	}, nil
}
