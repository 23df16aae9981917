package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentsplaybook/internal/store"
	"agentsplaybook/pkg/playbooktypes"
)

func TestAutoResetManager_ThresholdDefault(t *testing.T) {
	s := store.NewMemoryStore()

	assert.Equal(t, DefaultAutoResetThreshold, NewAutoResetManager(s, s, 0).Threshold())
	assert.Equal(t, DefaultAutoResetThreshold, NewAutoResetManager(s, s, -5).Threshold())
	assert.Equal(t, 500, NewAutoResetManager(s, s, 500).Threshold())
}

func TestAutoResetManager_ShouldTriggerBoundary(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	session := store.NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))

	manager := NewAutoResetManager(s, s, 100)

	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "assistant",
		Payload:   playbooktypes.TextPayload("exactly at the line"),
		Tokens:    100,
	}))

	// Usage equal to the threshold does not trigger; only exceeding it does.
	trigger, err := manager.ShouldTriggerAutoReset(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, trigger)

	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "user",
		Payload:   playbooktypes.TextPayload("one more"),
		Tokens:    1,
	}))

	trigger, err = manager.ShouldTriggerAutoReset(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, trigger)
}

func TestAutoResetManager_ShouldTriggerIsPure(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	session := store.NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))
	require.NoError(t, s.AppendMessage(ctx, &playbooktypes.Message{
		SessionID: session.ID,
		Role:      "assistant",
		Payload:   playbooktypes.TextPayload("big answer"),
		Tokens:    1000,
	}))

	manager := NewAutoResetManager(s, s, 100)

	for i := 0; i < 3; i++ {
		trigger, err := manager.ShouldTriggerAutoReset(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, trigger)
	}

	// The query never rolled the session over.
	current, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, current.Archived())
}

func TestAutoResetManager_TriggerAutoReset(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	session := store.NewSession("user-1", playbooktypes.ModeWorkflow, "wf-1", "")
	require.NoError(t, s.CreateSession(ctx, session))

	manager := NewAutoResetManager(s, s, 100)

	newID, err := manager.TriggerAutoReset(ctx, session.ID)
	require.NoError(t, err)
	require.NotEmpty(t, newID)
	assert.NotEqual(t, session.ID, newID)

	successor, err := s.GetSession(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, 0, successor.TotalTokens)
	assert.False(t, successor.Archived())

	// No continuity state survives the rollover.
	responseID, err := s.LastResponseID(ctx, newID)
	require.NoError(t, err)
	assert.Empty(t, responseID)
}

func TestAutoResetManager_TriggerUnknownSession(t *testing.T) {
	s := store.NewMemoryStore()
	manager := NewAutoResetManager(s, s, 100)

	_, err := manager.TriggerAutoReset(context.Background(), "no-such-session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto-reset rollover failed")
}
