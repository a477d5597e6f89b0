package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/assistant"
)

type AssistantHandler struct {
	assistant *assistant.Assistant
	logger    *slog.Logger
}

func NewAssistantHandler(a *assistant.Assistant, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: a, logger: logger.With("component", "assistant")}
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// SuggestGoal proposes a goal with tasks from a free-form prompt.
func (h *AssistantHandler) SuggestGoal(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}
	var req promptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	s, err := h.assistant.SuggestGoal(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, assistant.ErrNoSuggestion) {
			writeError(w, http.StatusBadGateway, "assistant could not produce a suggestion")
			return
		}
		h.logger.Error("suggest goal", "error", err)
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}
	var req promptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	answer, err := h.assistant.Chat(r.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("chat", "error", err)
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
