// Package api exposes the chat subsystem over HTTP. The surface is
// deliberately small: one POST endpoint per chat turn, a session listing, and
// a health check.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"agentsplaybook/internal/logger"
	"agentsplaybook/internal/services"
	"agentsplaybook/pkg/playbooktypes"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// ChatHandler serves POST /v1/chat.
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a chat handler over the given service.
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// ServeHTTP decodes one chat turn request, runs it through the pipeline, and
// writes either the assistant turn or a structured error. Validation failures
// carry their field-specific message verbatim; everything else gets the error
// detail with a 500 status.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req services.ChatTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.chat.HandleTurn(r.Context(), &req)
	if err != nil {
		logger.Error("Chat turn failed", "user_id", req.UserID, "chat_id", req.ChatID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SessionsHandler serves GET /v1/sessions.
type SessionsHandler struct {
	registry playbooktypes.SessionRegistry
}

// NewSessionsHandler creates a session listing handler.
func NewSessionsHandler(registry playbooktypes.SessionRegistry) *SessionsHandler {
	return &SessionsHandler{registry: registry}
}

// ServeHTTP lists all sessions, archived ones included.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessions, err := h.registry.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// NewRouter assembles the HTTP routes.
func NewRouter(chat *services.ChatService, registry playbooktypes.SessionRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/v1/chat", NewChatHandler(chat))
	mux.Handle("/v1/sessions", NewSessionsHandler(registry))
	mux.HandleFunc("/v1/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
