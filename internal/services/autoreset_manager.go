package services

import (
	"context"
	"fmt"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// DefaultAutoResetThreshold is the cumulative token count beyond which a
// session is rolled over when no threshold is configured.
const DefaultAutoResetThreshold = 100000

// AutoResetManager decides when a session's cumulative token usage has
// crossed the configured threshold and performs the rollover. The threshold is
// injected configuration, not a constant baked into the decision.
type AutoResetManager struct {
	store     playbooktypes.MessageStore
	registry  playbooktypes.SessionRegistry
	threshold int
}

// NewAutoResetManager creates an auto-reset manager. A non-positive threshold
// falls back to DefaultAutoResetThreshold.
func NewAutoResetManager(store playbooktypes.MessageStore, registry playbooktypes.SessionRegistry, threshold int) *AutoResetManager {
	if threshold <= 0 {
		threshold = DefaultAutoResetThreshold
	}
	return &AutoResetManager{
		store:     store,
		registry:  registry,
		threshold: threshold,
	}
}

// Threshold returns the configured token threshold.
func (m *AutoResetManager) Threshold() int {
	return m.threshold
}

// ShouldTriggerAutoReset reports whether the session's cumulative token usage
// exceeds the threshold. Pure query, no mutation: the turn that pushed usage
// over the line is never rolled back, the next send triggers the rollover.
func (m *AutoResetManager) ShouldTriggerAutoReset(ctx context.Context, chatID string) (bool, error) {
	tokens, err := m.store.TotalTokens(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to read token usage: %w", err)
	}
	return tokens > m.threshold, nil
}

// TriggerAutoReset archives the current session and returns the identifier of
// its fresh successor. The successor starts with no continuity pointer and no
// carried-over tool results; provider conversation state does not survive the
// threshold boundary. If the rollover cannot complete, the prior session
// remains active and usable on retry.
func (m *AutoResetManager) TriggerAutoReset(ctx context.Context, chatID string) (string, error) {
	successor, err := m.registry.ArchiveAndCreateSuccessor(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("auto-reset rollover failed: %w", err)
	}

	logger.Info("Session rolled over", "chat_id", chatID, "successor", successor.ID, "threshold", m.threshold)
	return successor.ID, nil
}
