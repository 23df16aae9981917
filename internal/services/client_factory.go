package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// ClientFactoryService implements the ClientFactory interface. It creates LLM
// clients per (provider, API key) pair and caches them so repeated turns with
// the same caller key reuse the underlying SDK client.
type ClientFactoryService struct {
	mu      sync.RWMutex
	clients map[string]playbooktypes.LLMClient
}

// NewClientFactoryService creates a new ClientFactoryService instance.
func NewClientFactoryService() *ClientFactoryService {
	return &ClientFactoryService{
		clients: make(map[string]playbooktypes.LLMClient),
	}
}

// GetClientForProvider returns an LLM client for the specified provider and
// API key, reusing a cached instance when one exists.
func (f *ClientFactoryService) GetClientForProvider(provider, apiKey string) (playbooktypes.LLMClient, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key cannot be empty for provider '%s'", provider)
	}

	clientID := f.generateClientID(provider, apiKey)

	f.mu.RLock()
	client, exists := f.clients[clientID]
	f.mu.RUnlock()
	if exists {
		logger.Debug("Returning cached provider client", "provider", provider, "clientID", clientID)
		return client, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Another request may have created the client between the two locks.
	if client, exists := f.clients[clientID]; exists {
		return client, nil
	}

	var newClient playbooktypes.LLMClient
	switch provider {
	case "openai":
		newClient = NewOpenAIClient(apiKey)
	case "anthropic":
		newClient = NewAnthropicClient(apiKey)
	case "gemini":
		newClient = NewGeminiClient(apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider '%s'. Supported providers: openai, anthropic, gemini", provider)
	}

	f.clients[clientID] = newClient
	logger.Debug("Created new provider client", "provider", provider, "clientID", clientID)
	return newClient, nil
}

// generateClientID creates a unique, secure client ID for the given provider
// and API key. Uses SHA-256 hash with first 8 hex characters so raw keys never
// appear in logs or map keys.
func (f *ClientFactoryService) generateClientID(provider, apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	hexHash := hex.EncodeToString(hash[:])
	return fmt.Sprintf("%s:%s", provider, hexHash[:8])
}
