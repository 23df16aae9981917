package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentsplaybook/pkg/playbooktypes"
)

// ErrValidation marks input validation failures so transport layers can map
// them to client errors and surface the field-specific message verbatim.
var ErrValidation = errors.New("invalid request")

// PrepareDataStep validates that every field a pipeline run depends on is
// present before any I/O happens. It is idempotent: running it on its own
// output changes nothing beyond the DataReady flag it already set.
type PrepareDataStep struct{}

// NewPrepareDataStep creates the validation step.
func NewPrepareDataStep() *PrepareDataStep {
	return &PrepareDataStep{}
}

// Name returns the step name.
func (s *PrepareDataStep) Name() string { return "prepare_data" }

// Execute checks required fields and marks the context ready. Errors name the
// missing field so callers can surface them verbatim.
func (s *PrepareDataStep) Execute(_ context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	if pc.UserID == "" {
		return pc, fmt.Errorf("%w: User ID is required", ErrValidation)
	}
	if strings.TrimSpace(pc.Message) == "" {
		return pc, fmt.Errorf("%w: message text is required", ErrValidation)
	}
	if pc.APIKey == "" {
		return pc, fmt.Errorf("%w: API key is required", ErrValidation)
	}
	if pc.Mode == "" {
		return pc, fmt.Errorf("%w: mode is required", ErrValidation)
	}
	if !pc.Mode.Valid() {
		return pc, fmt.Errorf("%w: mode '%s' is not valid", ErrValidation, pc.Mode)
	}

	pc.DataReady = true
	return pc, nil
}

// ResolveSessionStep makes sure the run has a session to append to. When the
// caller supplies no chat ID, the active session for the (user, mode, target)
// combination is used, created first if none exists.
type ResolveSessionStep struct {
	registry playbooktypes.SessionRegistry
}

// NewResolveSessionStep creates the session resolution step.
func NewResolveSessionStep(registry playbooktypes.SessionRegistry) *ResolveSessionStep {
	return &ResolveSessionStep{registry: registry}
}

// Name returns the step name.
func (s *ResolveSessionStep) Name() string { return "resolve_session" }

// Execute resolves or creates the session and sets ChatID.
func (s *ResolveSessionStep) Execute(ctx context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	if pc.ChatID != "" {
		return pc, nil
	}

	target := pc.WorkflowID
	if pc.Mode == playbooktypes.ModeMiniPrompt {
		target = pc.MiniPromptID
	}

	session, err := s.registry.ActiveSession(ctx, pc.UserID, pc.Mode, target)
	if err != nil {
		return pc, fmt.Errorf("active session lookup failed: %w", err)
	}
	if session == nil {
		session = newSessionForContext(&pc)
		if err := s.registry.CreateSession(ctx, session); err != nil {
			return pc, fmt.Errorf("session creation failed: %w", err)
		}
	}

	pc.ChatID = session.ID
	return pc, nil
}

// CheckAutoResetStep consults the auto-reset manager and either performs the
// rollover or fetches the continuity state for the next model call.
type CheckAutoResetStep struct {
	manager *AutoResetManager
	store   playbooktypes.MessageStore
}

// NewCheckAutoResetStep creates the auto-reset check step.
func NewCheckAutoResetStep(manager *AutoResetManager, store playbooktypes.MessageStore) *CheckAutoResetStep {
	return &CheckAutoResetStep{manager: manager, store: store}
}

// Name returns the step name.
func (s *CheckAutoResetStep) Name() string { return "check_auto_reset" }

// Execute updates exactly the auto-reset and continuity fields; every other
// field of the incoming context is preserved unchanged.
func (s *CheckAutoResetStep) Execute(ctx context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	if pc.ChatID == "" {
		return pc, fmt.Errorf("chat ID is required for the auto-reset check")
	}

	trigger, err := s.manager.ShouldTriggerAutoReset(ctx, pc.ChatID)
	if err != nil {
		return pc, err
	}

	if trigger {
		newChatID, err := s.manager.TriggerAutoReset(ctx, pc.ChatID)
		if err != nil {
			return pc, err
		}
		pc.ChatID = newChatID
		pc.AutoResetTriggered = true
		pc.ChainBroken = true
		pc.PreviousResponseID = ""
		pc.PreviousToolResults = nil
		return pc, nil
	}

	responseID, err := s.store.LastResponseID(ctx, pc.ChatID)
	if err != nil {
		return pc, fmt.Errorf("continuity lookup failed: %w", err)
	}
	pc.PreviousResponseID = responseID
	pc.PreviousToolResults = nil
	if responseID != "" {
		results, err := s.store.LastToolResults(ctx, pc.ChatID)
		if err != nil {
			return pc, fmt.Errorf("tool result lookup failed: %w", err)
		}
		pc.PreviousToolResults = results
	}

	pc.AutoResetTriggered = false
	pc.ChainBroken = false
	return pc, nil
}

// BuildContextStep assembles the provider context for the run.
type BuildContextStep struct {
	builder *ContextBuilder
}

// NewBuildContextStep creates the context assembly step.
func NewBuildContextStep(builder *ContextBuilder) *BuildContextStep {
	return &BuildContextStep{builder: builder}
}

// Name returns the step name.
func (s *BuildContextStep) Name() string { return "build_context" }

// Execute runs the context builder and stores its output on the context.
func (s *BuildContextStep) Execute(ctx context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	req := &playbooktypes.ContextRequest{
		UserID:                 pc.UserID,
		Mode:                   pc.Mode,
		WorkflowID:             pc.WorkflowID,
		MiniPromptID:           pc.MiniPromptID,
		ViewedMiniPromptID:     pc.ViewedMiniPromptID,
		IncludeExtendedContext: pc.IncludeExtendedContext,
	}

	built, err := s.builder.BuildContext(ctx, req)
	if err != nil {
		return pc, err
	}

	pc.SystemMessage = built.SystemMessage
	pc.UserContent = built.UserContent
	pc.ContextReady = true
	return pc, nil
}

// CallModelStep forwards the assembled prompt to the configured LLM provider.
// The caller's context bounds the call; on cancellation or timeout no reply is
// recorded and nothing reaches the persistence step.
type CallModelStep struct {
	factory playbooktypes.ClientFactory
	store   playbooktypes.MessageStore
}

// NewCallModelStep creates the model call step.
func NewCallModelStep(factory playbooktypes.ClientFactory, store playbooktypes.MessageStore) *CallModelStep {
	return &CallModelStep{factory: factory, store: store}
}

// Name returns the step name.
func (s *CallModelStep) Name() string { return "call_model" }

// Execute sends the turn to the provider and records the reply on the context.
func (s *CallModelStep) Execute(ctx context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	client, err := s.factory.GetClientForProvider(pc.Provider, pc.APIKey)
	if err != nil {
		return pc, err
	}

	history, err := s.store.MessageHistory(ctx, pc.ChatID)
	if err != nil {
		return pc, fmt.Errorf("history lookup failed: %w", err)
	}

	userContent := pc.Message
	if pc.UserContent != "" {
		userContent = pc.UserContent + "\n\n" + pc.Message
	}

	reply, err := client.SendChatCompletion(ctx, &playbooktypes.ChatRequest{
		Model:              pc.Model,
		SystemMessage:      pc.SystemMessage,
		UserContent:        userContent,
		History:            history,
		PreviousResponseID: pc.PreviousResponseID,
		PreviousToolCalls:  pc.PreviousToolResults,
	})
	if err != nil {
		return pc, err
	}

	pc.Reply = reply
	return pc, nil
}

// PersistResultStep appends the completed turn to the message store: the user
// message carrying the prompt tokens, the assistant message carrying the
// completion tokens and the continuation identifier, and any tool activity
// the provider reported.
type PersistResultStep struct {
	store playbooktypes.MessageStore
}

// NewPersistResultStep creates the persistence step.
func NewPersistResultStep(store playbooktypes.MessageStore) *PersistResultStep {
	return &PersistResultStep{store: store}
}

// Name returns the step name.
func (s *PersistResultStep) Name() string { return "persist_result" }

// Execute persists the turn. It runs only after a successful model call, so
// aborted or failed calls never count toward the session's token threshold.
func (s *PersistResultStep) Execute(ctx context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	if pc.Reply == nil {
		return pc, fmt.Errorf("no model reply to persist")
	}

	userTurn := &playbooktypes.Message{
		SessionID: pc.ChatID,
		Role:      "user",
		Payload:   playbooktypes.TextPayload(pc.Message),
		Tokens:    pc.Reply.Usage.Prompt,
	}
	if err := s.store.AppendMessage(ctx, userTurn); err != nil {
		return pc, fmt.Errorf("failed to persist user turn: %w", err)
	}

	assistantTurn := &playbooktypes.Message{
		SessionID:  pc.ChatID,
		Role:       "assistant",
		Payload:    playbooktypes.TextPayload(pc.Reply.Content),
		Tokens:     pc.Reply.Usage.Completion,
		ResponseID: pc.Reply.ResponseID,
	}
	if err := s.store.AppendMessage(ctx, assistantTurn); err != nil {
		return pc, fmt.Errorf("failed to persist assistant turn: %w", err)
	}

	for _, call := range pc.Reply.ToolCalls {
		callTurn := &playbooktypes.Message{
			SessionID: pc.ChatID,
			Role:      "assistant",
			Payload:   playbooktypes.ToolCallPayload(call.CallID, call.Name, call.Arguments),
		}
		if err := s.store.AppendMessage(ctx, callTurn); err != nil {
			return pc, fmt.Errorf("failed to persist tool call: %w", err)
		}
		if call.Result == "" {
			continue
		}
		resultTurn := &playbooktypes.Message{
			SessionID: pc.ChatID,
			Role:      "assistant",
			Payload:   playbooktypes.ToolResultPayload(call.CallID, call.Result),
		}
		if err := s.store.AppendMessage(ctx, resultTurn); err != nil {
			return pc, fmt.Errorf("failed to persist tool result: %w", err)
		}
	}

	return pc, nil
}

// newSessionForContext builds a fresh session from the run's targeting fields.
func newSessionForContext(pc *playbooktypes.PipelineContext) *playbooktypes.ChatSession {
	now := time.Now()
	return &playbooktypes.ChatSession{
		ID:           uuid.New().String(),
		UserID:       pc.UserID,
		Mode:         pc.Mode,
		WorkflowID:   pc.WorkflowID,
		MiniPromptID: pc.MiniPromptID,
		CreatedAt:    now,
		LastActivity: now,
	}
}
