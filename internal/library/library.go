// Package library loads the workflow and mini-prompt catalog from a directory
// of YAML files and resolves lookups for the context providers.
package library

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// libraryFile is the on-disk shape of one library YAML file. A file may
// declare workflows, standalone mini-prompts, or both.
type libraryFile struct {
	Workflows   []playbooktypes.Workflow   `yaml:"workflows"`
	MiniPrompts []playbooktypes.MiniPrompt `yaml:"mini_prompts"`
}

// Library holds the loaded workflow catalog. It is immutable after Load, so
// concurrent reads need no locking.
type Library struct {
	workflows   map[string]*playbooktypes.Workflow
	miniPrompts map[string]*playbooktypes.MiniPrompt
	promptOrder []string
}

// New creates an empty library.
func New() *Library {
	return &Library{
		workflows:   make(map[string]*playbooktypes.Workflow),
		miniPrompts: make(map[string]*playbooktypes.MiniPrompt),
	}
}

// Load reads every .yaml/.yml file under dir into the catalog. Files that do
// not parse fail the whole load; a half-loaded catalog would give providers a
// misleading picture of available workflows.
func Load(dir string) (*Library, error) {
	lib := New()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read library file %s: %w", entry.Name(), err)
		}
		var file libraryFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse library file %s: %w", entry.Name(), err)
		}
		if err := lib.add(&file); err != nil {
			return nil, fmt.Errorf("invalid library file %s: %w", entry.Name(), err)
		}
	}

	logger.Info("Workflow library loaded", "workflows", len(lib.workflows), "mini_prompts", len(lib.promptOrder))
	return lib, nil
}

func (l *Library) add(file *libraryFile) error {
	for i := range file.Workflows {
		wf := &file.Workflows[i]
		if wf.ID == "" {
			return fmt.Errorf("workflow '%s' has no ID", wf.Title)
		}
		if _, exists := l.workflows[wf.ID]; exists {
			return fmt.Errorf("duplicate workflow ID '%s'", wf.ID)
		}
		l.workflows[wf.ID] = wf
		for si := range wf.Stages {
			for pi := range wf.Stages[si].MiniPrompts {
				if err := l.addMiniPrompt(&wf.Stages[si].MiniPrompts[pi]); err != nil {
					return err
				}
			}
		}
	}

	for i := range file.MiniPrompts {
		if err := l.addMiniPrompt(&file.MiniPrompts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) addMiniPrompt(mp *playbooktypes.MiniPrompt) error {
	if mp.ID == "" {
		return fmt.Errorf("mini-prompt '%s' has no ID", mp.Title)
	}
	if _, exists := l.miniPrompts[mp.ID]; exists {
		return fmt.Errorf("duplicate mini-prompt ID '%s'", mp.ID)
	}
	l.miniPrompts[mp.ID] = mp
	l.promptOrder = append(l.promptOrder, mp.ID)
	return nil
}

// WorkflowByID returns the workflow with its nested stage/mini-prompt
// structure.
func (l *Library) WorkflowByID(id string) (*playbooktypes.Workflow, error) {
	wf, exists := l.workflows[id]
	if !exists {
		return nil, fmt.Errorf("workflow with ID '%s' not found", id)
	}
	return wf, nil
}

// MiniPromptByID returns a mini-prompt, standalone or nested.
func (l *Library) MiniPromptByID(id string) (*playbooktypes.MiniPrompt, error) {
	mp, exists := l.miniPrompts[id]
	if !exists {
		return nil, fmt.Errorf("mini-prompt with ID '%s' not found", id)
	}
	return mp, nil
}

// ListMiniPrompts returns every mini-prompt in load order.
func (l *Library) ListMiniPrompts() []*playbooktypes.MiniPrompt {
	prompts := make([]*playbooktypes.MiniPrompt, 0, len(l.promptOrder))
	for _, id := range l.promptOrder {
		prompts = append(prompts, l.miniPrompts[id])
	}
	return prompts
}
