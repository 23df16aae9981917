// Package playbooktypes defines the shared domain types for Agents Playbook.
// This file contains the session and conversation types used by the chat
// pipeline, the message store, and the session registry.
package playbooktypes

import "time"

// SessionMode identifies what kind of target a chat session is bound to.
type SessionMode string

const (
	// ModeWorkflow binds a session to a full workflow (ordered stages of mini-prompts).
	ModeWorkflow SessionMode = "workflow"
	// ModeMiniPrompt binds a session to a single standalone mini-prompt.
	ModeMiniPrompt SessionMode = "mini-prompt"
)

// Valid reports whether the mode is one of the known session modes.
func (m SessionMode) Valid() bool {
	return m == ModeWorkflow || m == ModeMiniPrompt
}

// ChatSession represents one continuous conversation against a workflow or
// mini-prompt target. A session accumulates token usage across turns; once the
// configured threshold is crossed it is archived and superseded by a successor
// session for the same (user, mode, target) combination.
type ChatSession struct {
	ID           string      `json:"id"`                       // Unique session identifier
	UserID       string      `json:"user_id"`                  // Owning user
	Mode         SessionMode `json:"mode"`                     // workflow or mini-prompt
	WorkflowID   string      `json:"workflow_id,omitempty"`    // Linked workflow (workflow mode)
	MiniPromptID string      `json:"mini_prompt_id,omitempty"` // Linked mini-prompt (mini-prompt mode)
	TotalTokens  int         `json:"total_tokens"`             // Cumulative token usage across turns
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
	ArchivedAt   *time.Time  `json:"archived_at,omitempty"`  // Set when superseded by a rollover
	SuccessorID  string      `json:"successor_id,omitempty"` // Session that superseded this one
}

// Archived reports whether the session has been superseded. Archived sessions
// are read-only: no further turns may be appended.
func (s *ChatSession) Archived() bool {
	return s.ArchivedAt != nil
}

// Target returns the identifier of the session's conversation target,
// depending on its mode.
func (s *ChatSession) Target() string {
	if s.Mode == ModeMiniPrompt {
		return s.MiniPromptID
	}
	return s.WorkflowID
}

// PayloadKind discriminates the shape of a message payload.
type PayloadKind string

const (
	// PayloadText is plain conversational text.
	PayloadText PayloadKind = "text"
	// PayloadToolCall is a model-issued tool invocation.
	PayloadToolCall PayloadKind = "toolCall"
	// PayloadToolResult is the result of a previously issued tool invocation.
	PayloadToolResult PayloadKind = "toolResult"
)

// MessagePayload is the tagged union carried by a message. Exactly the fields
// relevant to Kind are populated; consumers switch on Kind rather than probing
// for optional fields.
type MessagePayload struct {
	Kind       PayloadKind            `json:"kind"`
	Text       string                 `json:"text,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	ToolArgs   map[string]interface{} `json:"tool_args,omitempty"`
	ToolResult string                 `json:"tool_result,omitempty"`
}

// TextPayload builds a plain-text message payload.
func TextPayload(text string) MessagePayload {
	return MessagePayload{Kind: PayloadText, Text: text}
}

// ToolCallPayload builds a tool-invocation message payload.
func ToolCallPayload(callID, name string, args map[string]interface{}) MessagePayload {
	return MessagePayload{Kind: PayloadToolCall, ToolCallID: callID, ToolName: name, ToolArgs: args}
}

// ToolResultPayload builds a tool-result message payload.
func ToolResultPayload(callID, result string) MessagePayload {
	return MessagePayload{Kind: PayloadToolResult, ToolCallID: callID, ToolResult: result}
}

// Message represents a single turn within a chat session. Messages are
// strictly ordered by creation time within their session; the most recent
// message's ResponseID and tool results carry the conversational continuity
// state for the next call.
type Message struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Role       string         `json:"role"` // user, assistant, or system
	Payload    MessagePayload `json:"payload"`
	Tokens     int            `json:"tokens"`                // Token count for this turn
	ResponseID string         `json:"response_id,omitempty"` // Upstream continuation identifier
	CreatedAt  time.Time      `json:"created_at"`
}
