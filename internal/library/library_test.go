package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `workflows:
  - id: wf-discovery
    title: Product Discovery
    description: From idea to validated spec.
    stages:
      - id: st-prepare
        title: Prepare
        mini_prompts:
          - id: mp-kickoff
            title: Kickoff
            content: Gather the requirements.
      - id: st-validate
        title: Validate
        mini_prompts:
          - id: mp-review
            title: Review
            content: Review the draft.
mini_prompts:
  - id: mp-standalone
    title: Standalone
    content: A prompt outside any workflow.
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "discovery.yaml", fixtureYAML)
	writeFixture(t, dir, "notes.txt", "not a library file")

	lib, err := Load(dir)
	require.NoError(t, err)

	wf, err := lib.WorkflowByID("wf-discovery")
	require.NoError(t, err)
	assert.Equal(t, "Product Discovery", wf.Title)
	require.Len(t, wf.Stages, 2)
	assert.Equal(t, "Prepare", wf.Stages[0].Title)

	// Nested and standalone mini-prompts are both resolvable.
	mp, err := lib.MiniPromptByID("mp-kickoff")
	require.NoError(t, err)
	assert.Equal(t, "Gather the requirements.", mp.Content)

	mp, err = lib.MiniPromptByID("mp-standalone")
	require.NoError(t, err)
	assert.Equal(t, "Standalone", mp.Title)

	prompts := lib.ListMiniPrompts()
	require.Len(t, prompts, 3)
	assert.Equal(t, "mp-kickoff", prompts[0].ID)
	assert.Equal(t, "mp-review", prompts[1].ID)
	assert.Equal(t, "mp-standalone", prompts[2].ID)
}

func TestLoad_UnknownLookups(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "discovery.yaml", fixtureYAML)

	lib, err := Load(dir)
	require.NoError(t, err)

	_, err = lib.WorkflowByID("wf-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wf-missing")

	_, err = lib.MiniPromptByID("mp-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mp-missing")
}

func TestLoad_MalformedFileFailsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "discovery.yaml", fixtureYAML)
	writeFixture(t, dir, "broken.yaml", "workflows: [unterminated")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestLoad_DuplicateMiniPromptID(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "mini_prompts:\n  - id: mp-1\n    title: First\n    content: one\n")
	writeFixture(t, dir, "b.yaml", "mini_prompts:\n  - id: mp-1\n    title: Second\n    content: two\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate mini-prompt ID 'mp-1'")
}

func TestLoad_MissingID(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "workflows:\n  - title: No ID Here\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no ID")
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestNew_Empty(t *testing.T) {
	lib := New()
	assert.Empty(t, lib.ListMiniPrompts())

	_, err := lib.WorkflowByID("anything")
	assert.Error(t, err)
}
