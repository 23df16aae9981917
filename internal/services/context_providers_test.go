package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentsplaybook/pkg/playbooktypes"
)

// stubSource serves a fixed workflow and mini-prompt set.
type stubSource struct {
	workflows   map[string]*playbooktypes.Workflow
	miniPrompts map[string]*playbooktypes.MiniPrompt
}

func (s *stubSource) WorkflowByID(id string) (*playbooktypes.Workflow, error) {
	wf, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow with ID '%s' not found", id)
	}
	return wf, nil
}

func (s *stubSource) MiniPromptByID(id string) (*playbooktypes.MiniPrompt, error) {
	mp, ok := s.miniPrompts[id]
	if !ok {
		return nil, fmt.Errorf("mini-prompt with ID '%s' not found", id)
	}
	return mp, nil
}

func (s *stubSource) ListMiniPrompts() []*playbooktypes.MiniPrompt {
	var prompts []*playbooktypes.MiniPrompt
	for _, mp := range s.miniPrompts {
		prompts = append(prompts, mp)
	}
	return prompts
}

func fixtureSource() *stubSource {
	kickoff := playbooktypes.MiniPrompt{ID: "mp-kickoff", Title: "Kickoff", Content: "Gather the requirements."}
	review := playbooktypes.MiniPrompt{ID: "mp-review", Title: "Review", Content: "Review the draft."}

	return &stubSource{
		workflows: map[string]*playbooktypes.Workflow{
			"wf-1": {
				ID:          "wf-1",
				Title:       "Product Discovery",
				Description: "From idea to validated spec.",
				Stages: []playbooktypes.Stage{
					{ID: "st-1", Title: "Prepare", MiniPrompts: []playbooktypes.MiniPrompt{kickoff}},
					{ID: "st-2", Title: "Validate", MiniPrompts: []playbooktypes.MiniPrompt{review}},
				},
			},
			"wf-empty": {ID: "wf-empty", Title: "Empty Workflow"},
		},
		miniPrompts: map[string]*playbooktypes.MiniPrompt{
			"mp-kickoff": &kickoff,
			"mp-review":  &review,
		},
	}
}

func workflowRequest() *playbooktypes.ContextRequest {
	return &playbooktypes.ContextRequest{
		UserID:     "user-1",
		Mode:       playbooktypes.ModeWorkflow,
		WorkflowID: "wf-1",
	}
}

func TestWorkflowMetadataProvider(t *testing.T) {
	p := NewWorkflowMetadataProvider(fixtureSource())

	assert.True(t, p.ShouldProvide(workflowRequest()))
	assert.False(t, p.ShouldProvide(&playbooktypes.ContextRequest{Mode: playbooktypes.ModeMiniPrompt, MiniPromptID: "mp-kickoff"}))

	section, err := p.BuildContext(context.Background(), workflowRequest())
	require.NoError(t, err)
	require.NotNil(t, section)
	assert.Equal(t, 100, section.Priority)
	assert.Contains(t, section.Content, "## Workflow: Product Discovery")
	assert.Contains(t, section.Content, "From idea to validated spec.")
	assert.Contains(t, section.Content, "Stages: 2")
}

func TestWorkflowMetadataProvider_UnknownWorkflow(t *testing.T) {
	p := NewWorkflowMetadataProvider(fixtureSource())

	req := workflowRequest()
	req.WorkflowID = "wf-missing"
	_, err := p.BuildContext(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wf-missing")
}

func TestStageOutlineProvider(t *testing.T) {
	p := NewStageOutlineProvider(fixtureSource())

	section, err := p.BuildContext(context.Background(), workflowRequest())
	require.NoError(t, err)
	require.NotNil(t, section)
	assert.Equal(t, 80, section.Priority)
	assert.Contains(t, section.Content, "1. Prepare (Kickoff)")
	assert.Contains(t, section.Content, "2. Validate (Review)")
}

func TestStageOutlineProvider_NoStages(t *testing.T) {
	p := NewStageOutlineProvider(fixtureSource())

	req := workflowRequest()
	req.WorkflowID = "wf-empty"
	section, err := p.BuildContext(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, section)
}

func TestCurrentMiniPromptProvider_ViewedTakesPrecedence(t *testing.T) {
	p := NewCurrentMiniPromptProvider(fixtureSource())

	req := &playbooktypes.ContextRequest{
		Mode:               playbooktypes.ModeMiniPrompt,
		MiniPromptID:       "mp-kickoff",
		ViewedMiniPromptID: "mp-review",
	}
	require.True(t, p.ShouldProvide(req))

	section, err := p.BuildContext(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, section)
	assert.Equal(t, 90, section.Priority)
	assert.Contains(t, section.Content, "## Current mini-prompt: Review")
	assert.Contains(t, section.Content, "Review the draft.")
}

func TestCurrentMiniPromptProvider_WorkflowModeNeedsViewedPrompt(t *testing.T) {
	p := NewCurrentMiniPromptProvider(fixtureSource())

	assert.False(t, p.ShouldProvide(workflowRequest()))

	req := workflowRequest()
	req.ViewedMiniPromptID = "mp-kickoff"
	assert.True(t, p.ShouldProvide(req))
}

func TestMiniPromptCatalogProvider(t *testing.T) {
	p := NewMiniPromptCatalogProvider(fixtureSource())

	section, err := p.BuildContext(context.Background(), workflowRequest())
	require.NoError(t, err)
	require.NotNil(t, section)
	assert.Equal(t, 60, section.Priority)
	assert.Contains(t, section.Content, "- Kickoff [mp-kickoff]")
	assert.Contains(t, section.Content, "- Review [mp-review]")
}

func TestMiniPromptCatalogProvider_EmptyWorkflow(t *testing.T) {
	p := NewMiniPromptCatalogProvider(fixtureSource())

	req := workflowRequest()
	req.WorkflowID = "wf-empty"
	section, err := p.BuildContext(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, section)
}

func TestConversationModeProvider(t *testing.T) {
	p := NewConversationModeProvider()

	section, err := p.BuildContext(context.Background(), workflowRequest())
	require.NoError(t, err)
	assert.Equal(t, 40, section.Priority)
	assert.Equal(t, "Conversation mode: workflow (target: wf-1)", section.Content)

	section, err = p.BuildContext(context.Background(), &playbooktypes.ContextRequest{Mode: playbooktypes.ModeMiniPrompt, MiniPromptID: "mp-kickoff"})
	require.NoError(t, err)
	assert.Equal(t, "Conversation mode: mini-prompt (target: mp-kickoff)", section.Content)
}
