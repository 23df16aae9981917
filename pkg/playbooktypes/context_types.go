// Package playbooktypes defines the shared domain types for Agents Playbook.
// This file contains the ephemeral context-assembly types threaded through the
// context builder and its providers.
package playbooktypes

// ContextRequest carries one invocation's inputs for context assembly. It is
// constructed per pipeline run and discarded afterwards; providers inspect it
// to decide whether and what to contribute.
type ContextRequest struct {
	UserID                 string
	Mode                   SessionMode
	WorkflowID             string
	MiniPromptID           string
	ViewedMiniPromptID     string // Mini-prompt the user is currently looking at, if any
	IncludeExtendedContext bool   // Whether system-level context was requested
}

// ContextSection is the output of a single context provider: a priority number
// and a block of text. Sections are combined in descending-priority order;
// empty content is dropped before joining.
type ContextSection struct {
	Priority int
	Content  string
}

// BuiltContext is the assembled output of the context builder. SystemMessage
// is nil whenever extended context was not requested, which distinguishes "no
// context needed" from "empty context computed".
type BuiltContext struct {
	SystemMessage *string
	UserContent   string
}
