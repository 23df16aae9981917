// Package playbooktypes defines the shared domain types for Agents Playbook.
// This file contains the interfaces consumed by the chat pipeline: the message
// store, session registry, context providers, pipeline steps, and the workflow
// library.
package playbooktypes

import "context"

// MessageStore persists conversation turns and answers the continuity queries
// the pipeline needs. Reads of the most-recent-message fields observe a view
// consistent with concurrent appends for the same session.
type MessageStore interface {
	// AppendMessage persists a new turn. It fails if the session is archived.
	AppendMessage(ctx context.Context, msg *Message) error

	// MessageHistory returns all turns of a session in creation order.
	MessageHistory(ctx context.Context, chatID string) ([]Message, error)

	// LastResponseID returns the continuation identifier of the most recent
	// turn that carries one, or "" when no turn does.
	LastResponseID(ctx context.Context, chatID string) (string, error)

	// LastToolResults returns pending tool-call turns from the most recent
	// assistant exchange, or nil when there are none.
	LastToolResults(ctx context.Context, chatID string) ([]Message, error)

	// TotalTokens returns the session's cumulative token usage.
	TotalTokens(ctx context.Context, chatID string) (int, error)
}

// SessionRegistry manages chat session lifecycle: creation, lookup of the
// active session for a target, and the atomic archive-and-supersede rollover.
type SessionRegistry interface {
	// CreateSession stores a new session. At most one active session may
	// exist per (user, mode, target); creating a second one fails.
	CreateSession(ctx context.Context, session *ChatSession) error

	// GetSession returns a session by ID.
	GetSession(ctx context.Context, id string) (*ChatSession, error)

	// ActiveSession returns the non-archived session for the given
	// (user, mode, target) combination, or nil when none exists.
	ActiveSession(ctx context.Context, userID string, mode SessionMode, target string) (*ChatSession, error)

	// ArchiveAndCreateSuccessor atomically archives the given session and
	// creates a fresh zero-token successor for the same target. If the
	// session was already archived by a concurrent rollover, the existing
	// successor is returned instead of creating a duplicate.
	ArchiveAndCreateSuccessor(ctx context.Context, chatID string) (*ChatSession, error)

	// ListSessions returns all stored sessions.
	ListSessions(ctx context.Context) ([]*ChatSession, error)

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, id string) error
}

// ContextProvider is one independent, priority-ranked unit of context
// assembly. ShouldProvide is a pure predicate; BuildContext may perform reads
// against the workflow library or other stores.
type ContextProvider interface {
	// Name returns a stable identifier for logging.
	Name() string

	// ShouldProvide reports whether this provider has anything to contribute
	// for the request. It must be side-effect free.
	ShouldProvide(req *ContextRequest) bool

	// BuildContext produces this provider's section, or nil to contribute
	// nothing. An error aborts the whole context build.
	BuildContext(ctx context.Context, req *ContextRequest) (*ContextSection, error)
}

// PipelineStep is one named unit of the chat pipeline. Steps execute strictly
// in sequence; an error aborts the remainder of the chain.
type PipelineStep interface {
	// Name returns the step name for logging and error attribution.
	Name() string

	// Execute transforms the pipeline context, returning a new value with
	// this step's fields updated and all others preserved.
	Execute(ctx context.Context, pc PipelineContext) (PipelineContext, error)
}

// WorkflowSource resolves workflows and mini-prompts for the context
// providers.
type WorkflowSource interface {
	// WorkflowByID returns the workflow with its nested stage/mini-prompt
	// structure.
	WorkflowByID(id string) (*Workflow, error)

	// MiniPromptByID returns a standalone mini-prompt.
	MiniPromptByID(id string) (*MiniPrompt, error)

	// ListMiniPrompts returns every mini-prompt known to the library,
	// including those nested in workflow stages.
	ListMiniPrompts() []*MiniPrompt
}
