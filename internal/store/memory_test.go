package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentsplaybook/pkg/playbooktypes"
)

func TestMemoryStore_CreateSession_EnforcesSingleActive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, first))

	second := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	err := s.CreateSession(ctx, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists for this target")

	// A different target is unaffected.
	other := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-2", "")
	require.NoError(t, s.CreateSession(ctx, other))
}

func TestMemoryStore_AppendMessage_AccumulatesTokens(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeMiniPrompt, "", "mp-1")
	require.NoError(t, s.CreateSession(ctx, session))

	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "user",
		Payload:   playbooktypes.TextPayload("hello"),
		Tokens:    12,
	}))
	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "assistant",
		Payload:   playbooktypes.TextPayload("hi"),
		Tokens:    30,
	}))

	tokens, err := s.TotalTokens(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, tokens)

	history, err := s.MessageHistory(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMemoryStore_AppendMessage_RejectsArchivedSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))

	_, err := s.ArchiveAndCreateSuccessor(ctx, session.ID)
	require.NoError(t, err)

	err = s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "user",
		Payload:   playbooktypes.TextPayload("too late"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archived")
}

func TestMemoryStore_LastResponseID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))

	id, err := s.LastResponseID(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID:  session.ID,
		Role:       "assistant",
		Payload:    playbooktypes.TextPayload("first"),
		ResponseID: "resp-1",
	}))
	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "user",
		Payload:   playbooktypes.TextPayload("follow-up"),
	}))

	id, err = s.LastResponseID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "resp-1", id)
}

func TestMemoryStore_LastToolResults(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))

	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID:  session.ID,
		Role:       "assistant",
		Payload:    playbooktypes.TextPayload("answer"),
		ResponseID: "resp-1",
	}))

	results, err := s.LastToolResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "assistant",
		Payload:   playbooktypes.ToolCallPayload("call-1", "search", nil),
	}))
	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "assistant",
		Payload:   playbooktypes.ToolResultPayload("call-1", "found it"),
	}))

	results, err = s.LastToolResults(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, playbooktypes.PayloadToolResult, results[0].Payload.Kind)
	assert.Equal(t, "found it", results[0].Payload.ToolResult)
}

func TestMemoryStore_ArchiveAndCreateSuccessor(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))
	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "user",
		Payload:   playbooktypes.TextPayload("hello"),
		Tokens:    500,
	}))

	successor, err := s.ArchiveAndCreateSuccessor(ctx, session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, successor.ID)
	assert.Equal(t, 0, successor.TotalTokens)
	assert.Equal(t, session.UserID, successor.UserID)
	assert.Equal(t, session.Mode, successor.Mode)
	assert.Equal(t, session.WorkflowID, successor.WorkflowID)

	archived, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived())
	assert.Equal(t, successor.ID, archived.SuccessorID)

	// The successor carries no history, so no continuity state either.
	history, err := s.MessageHistory(ctx, successor.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	active, err := s.ActiveSession(ctx, "user-1", playbooktypes.ModeWorkflow, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, successor.ID, active.ID)
}

func TestMemoryStore_ConcurrentRollover_SingleSuccessor(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))

	const workers = 16
	successors := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			successor, err := s.ArchiveAndCreateSuccessor(ctx, session.ID)
			require.NoError(t, err)
			successors[i] = successor.ID
		}(i)
	}
	wg.Wait()

	// Every trigger observed the same single successor.
	for i := 1; i < workers; i++ {
		assert.Equal(t, successors[0], successors[i])
	}

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	activeCount := 0
	for _, sess := range sessions {
		if !sess.Archived() {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestMemoryStore_DeleteSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session := NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))
	require.NoError(t, s.DeleteSession(ctx, session.ID))

	_, err := s.GetSession(ctx, session.ID)
	assert.Error(t, err)
}
