// Package playbooktypes defines the shared domain types for Agents Playbook.
// This file contains the pipeline context threaded through the step chain.
package playbooktypes

// PipelineContext is the value threaded through a single pipeline run. Each
// step receives it by value and returns a new value with exactly its own
// fields updated; no shared mutable state exists across concurrent runs.
type PipelineContext struct {
	// Request inputs.
	UserID                 string
	ChatID                 string
	Mode                   SessionMode
	Message                string
	APIKey                 string
	Provider               string
	Model                  string
	WorkflowID             string
	MiniPromptID           string
	ViewedMiniPromptID     string
	IncludeExtendedContext bool

	// Flags accumulated as steps execute.
	DataReady          bool
	AutoResetTriggered bool
	ChainBroken        bool
	ContextReady       bool

	// Continuity state fetched (or cleared) by the auto-reset check.
	PreviousResponseID  string
	PreviousToolResults []Message

	// Assembled context.
	SystemMessage *string
	UserContent   string

	// Model output, populated by the model-call step.
	Reply *ChatResult
}
