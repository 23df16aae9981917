// Package playbooktypes defines the shared domain types for Agents Playbook.
// This file contains the workflow library types: workflows, stages, and
// mini-prompts as loaded from the YAML library.
package playbooktypes

// MiniPrompt is a reusable, named block of instructional text usable as a
// stage step or as a standalone conversation target.
type MiniPrompt struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	Content string   `json:"content" yaml:"content"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Stage is one ordered step of a workflow, containing ordered mini-prompts.
type Stage struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	MiniPrompts []MiniPrompt `json:"mini_prompts,omitempty" yaml:"mini_prompts,omitempty"`
}

// Workflow is an ordered sequence of stages forming a guided AI-agent
// procedure.
type Workflow struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Stages      []Stage  `json:"stages,omitempty" yaml:"stages,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
