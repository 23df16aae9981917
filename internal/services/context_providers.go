package services

import (
	"context"
	"fmt"
	"strings"

	"agentsplaybook/pkg/playbooktypes"
)

// Provider output priorities. Higher priority sections appear first in the
// assembled context.
const (
	priorityWorkflowMetadata  = 100
	priorityCurrentMiniPrompt = 90
	priorityStageOutline      = 80
	priorityMiniPromptCatalog = 60
	priorityConversationMode  = 40
)

// WorkflowMetadataProvider contributes the active workflow's title and
// description to the system context.
type WorkflowMetadataProvider struct {
	source playbooktypes.WorkflowSource
}

// NewWorkflowMetadataProvider creates a workflow metadata provider backed by
// the given workflow source.
func NewWorkflowMetadataProvider(source playbooktypes.WorkflowSource) *WorkflowMetadataProvider {
	return &WorkflowMetadataProvider{source: source}
}

// Name returns the provider name for logging.
func (p *WorkflowMetadataProvider) Name() string { return "workflow_metadata" }

// ShouldProvide reports true when the request targets a workflow.
func (p *WorkflowMetadataProvider) ShouldProvide(req *playbooktypes.ContextRequest) bool {
	return req.Mode == playbooktypes.ModeWorkflow && req.WorkflowID != ""
}

// BuildContext resolves the workflow and renders its metadata.
func (p *WorkflowMetadataProvider) BuildContext(_ context.Context, req *playbooktypes.ContextRequest) (*playbooktypes.ContextSection, error) {
	wf, err := p.source.WorkflowByID(req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow metadata lookup failed: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Workflow: %s\n", wf.Title)
	if wf.Description != "" {
		sb.WriteString(wf.Description + "\n")
	}
	fmt.Fprintf(&sb, "Stages: %d", len(wf.Stages))

	return &playbooktypes.ContextSection{
		Priority: priorityWorkflowMetadata,
		Content:  sb.String(),
	}, nil
}

// StageOutlineProvider contributes a numbered outline of the workflow's
// stages and their mini-prompts to the system context.
type StageOutlineProvider struct {
	source playbooktypes.WorkflowSource
}

// NewStageOutlineProvider creates a stage outline provider backed by the
// given workflow source.
func NewStageOutlineProvider(source playbooktypes.WorkflowSource) *StageOutlineProvider {
	return &StageOutlineProvider{source: source}
}

// Name returns the provider name for logging.
func (p *StageOutlineProvider) Name() string { return "stage_outline" }

// ShouldProvide reports true when the request targets a workflow.
func (p *StageOutlineProvider) ShouldProvide(req *playbooktypes.ContextRequest) bool {
	return req.Mode == playbooktypes.ModeWorkflow && req.WorkflowID != ""
}

// BuildContext renders the stage outline. A workflow without stages
// contributes nothing.
func (p *StageOutlineProvider) BuildContext(_ context.Context, req *playbooktypes.ContextRequest) (*playbooktypes.ContextSection, error) {
	wf, err := p.source.WorkflowByID(req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("stage outline lookup failed: %w", err)
	}
	if len(wf.Stages) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("## Stage outline\n")
	for i, stage := range wf.Stages {
		fmt.Fprintf(&sb, "%d. %s", i+1, stage.Title)
		if len(stage.MiniPrompts) > 0 {
			titles := make([]string, 0, len(stage.MiniPrompts))
			for _, mp := range stage.MiniPrompts {
				titles = append(titles, mp.Title)
			}
			fmt.Fprintf(&sb, " (%s)", strings.Join(titles, ", "))
		}
		if i < len(wf.Stages)-1 {
			sb.WriteString("\n")
		}
	}

	return &playbooktypes.ContextSection{
		Priority: priorityStageOutline,
		Content:  sb.String(),
	}, nil
}

// CurrentMiniPromptProvider contributes the full content of the mini-prompt
// the conversation is focused on: the viewed one if any, otherwise the
// session's target mini-prompt.
type CurrentMiniPromptProvider struct {
	source playbooktypes.WorkflowSource
}

// NewCurrentMiniPromptProvider creates a current mini-prompt provider backed
// by the given workflow source.
func NewCurrentMiniPromptProvider(source playbooktypes.WorkflowSource) *CurrentMiniPromptProvider {
	return &CurrentMiniPromptProvider{source: source}
}

// Name returns the provider name for logging.
func (p *CurrentMiniPromptProvider) Name() string { return "current_mini_prompt" }

// ShouldProvide reports true when a mini-prompt is in focus.
func (p *CurrentMiniPromptProvider) ShouldProvide(req *playbooktypes.ContextRequest) bool {
	return p.promptID(req) != ""
}

func (p *CurrentMiniPromptProvider) promptID(req *playbooktypes.ContextRequest) string {
	if req.ViewedMiniPromptID != "" {
		return req.ViewedMiniPromptID
	}
	if req.Mode == playbooktypes.ModeMiniPrompt {
		return req.MiniPromptID
	}
	return ""
}

// BuildContext resolves the focused mini-prompt and renders its content.
func (p *CurrentMiniPromptProvider) BuildContext(_ context.Context, req *playbooktypes.ContextRequest) (*playbooktypes.ContextSection, error) {
	mp, err := p.source.MiniPromptByID(p.promptID(req))
	if err != nil {
		return nil, fmt.Errorf("mini-prompt lookup failed: %w", err)
	}

	return &playbooktypes.ContextSection{
		Priority: priorityCurrentMiniPrompt,
		Content:  fmt.Sprintf("## Current mini-prompt: %s\n%s", mp.Title, mp.Content),
	}, nil
}

// MiniPromptCatalogProvider contributes the titles of the mini-prompts
// available inside the active workflow, so the model knows what steps it can
// direct the user to.
type MiniPromptCatalogProvider struct {
	source playbooktypes.WorkflowSource
}

// NewMiniPromptCatalogProvider creates a catalog provider backed by the given
// workflow source.
func NewMiniPromptCatalogProvider(source playbooktypes.WorkflowSource) *MiniPromptCatalogProvider {
	return &MiniPromptCatalogProvider{source: source}
}

// Name returns the provider name for logging.
func (p *MiniPromptCatalogProvider) Name() string { return "mini_prompt_catalog" }

// ShouldProvide reports true when the request targets a workflow.
func (p *MiniPromptCatalogProvider) ShouldProvide(req *playbooktypes.ContextRequest) bool {
	return req.Mode == playbooktypes.ModeWorkflow && req.WorkflowID != ""
}

// BuildContext renders the catalog of mini-prompts in the active workflow.
func (p *MiniPromptCatalogProvider) BuildContext(_ context.Context, req *playbooktypes.ContextRequest) (*playbooktypes.ContextSection, error) {
	wf, err := p.source.WorkflowByID(req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("mini-prompt catalog lookup failed: %w", err)
	}

	var entries []string
	for _, stage := range wf.Stages {
		for _, mp := range stage.MiniPrompts {
			entries = append(entries, fmt.Sprintf("- %s [%s]", mp.Title, mp.ID))
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}

	return &playbooktypes.ContextSection{
		Priority: priorityMiniPromptCatalog,
		Content:  "## Available mini-prompts\n" + strings.Join(entries, "\n"),
	}, nil
}

// ConversationModeProvider contributes a single line naming the conversation
// mode and target, so the model always knows what it is helping with.
type ConversationModeProvider struct{}

// NewConversationModeProvider creates a conversation mode provider.
func NewConversationModeProvider() *ConversationModeProvider {
	return &ConversationModeProvider{}
}

// Name returns the provider name for logging.
func (p *ConversationModeProvider) Name() string { return "conversation_mode" }

// ShouldProvide always reports true; every conversation has a mode.
func (p *ConversationModeProvider) ShouldProvide(_ *playbooktypes.ContextRequest) bool {
	return true
}

// BuildContext renders the mode line.
func (p *ConversationModeProvider) BuildContext(_ context.Context, req *playbooktypes.ContextRequest) (*playbooktypes.ContextSection, error) {
	target := req.WorkflowID
	if req.Mode == playbooktypes.ModeMiniPrompt {
		target = req.MiniPromptID
	}

	content := fmt.Sprintf("Conversation mode: %s", req.Mode)
	if target != "" {
		content = fmt.Sprintf("Conversation mode: %s (target: %s)", req.Mode, target)
	}

	return &playbooktypes.ContextSection{
		Priority: priorityConversationMode,
		Content:  content,
	}, nil
}
