package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentsplaybook/internal/services"
	"agentsplaybook/internal/store"
	"agentsplaybook/pkg/playbooktypes"
)

// cannedClient always returns the same reply.
type cannedClient struct {
	result *playbooktypes.ChatResult
}

func (c *cannedClient) SendChatCompletion(_ context.Context, _ *playbooktypes.ChatRequest) (*playbooktypes.ChatResult, error) {
	return c.result, nil
}

func (c *cannedClient) GetProviderName() string { return "canned" }
func (c *cannedClient) IsConfigured() bool      { return true }

type cannedFactory struct {
	client playbooktypes.LLMClient
}

func (f *cannedFactory) GetClientForProvider(_, _ string) (playbooktypes.LLMClient, error) {
	return f.client, nil
}

func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()

	s := store.NewMemoryStore()
	builder := services.NewContextBuilder()
	builder.RegisterUserProvider(services.NewConversationModeProvider())

	chat := services.NewChatService(services.ChatServiceConfig{
		Store:    s,
		Registry: s,
		Builder:  builder,
		Factory: &cannedFactory{client: &cannedClient{result: &playbooktypes.ChatResult{
			Content:    "Start with the kickoff step.",
			ResponseID: "resp-1",
			Usage:      playbooktypes.TokenUsage{Prompt: 40, Completion: 20, Total: 60},
		}}},
		Manager:         services.NewAutoResetManager(s, s, 1000),
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o",
	})

	return NewRouter(chat, s)
}

func TestChatHandler_SuccessfulTurn(t *testing.T) {
	router := newTestRouter(t)

	body := `{"user_id":"user-1","mode":"workflow","message":"Where do I start?","api_key":"test-key","workflow_id":"wf-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp services.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ChatID)
	assert.Equal(t, "Start with the kickoff step.", resp.Content)
	assert.Equal(t, 60, resp.Usage.Total)
}

func TestChatHandler_ValidationErrorIs400(t *testing.T) {
	router := newTestRouter(t)

	body := `{"mode":"workflow","message":"hello","api_key":"test-key"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "User ID is required")
}

func TestChatHandler_MalformedBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionsHandler_ListsSessions(t *testing.T) {
	router := newTestRouter(t)

	// One chat turn creates one session.
	body := `{"user_id":"user-1","mode":"workflow","message":"Where do I start?","api_key":"test-key","workflow_id":"wf-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []playbooktypes.ChatSession `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "user-1", resp.Sessions[0].UserID)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
