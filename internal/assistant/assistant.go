// Package assistant turns free-form parent prompts into goal suggestions
// using a chat completion model.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var ErrNoSuggestion = errors.New("assistant returned no usable suggestion")

const suggestSystemPrompt = `You help parents design goals for a family rewards app.
Given a short description of what a child should work on, reply with ONLY a JSON
object shaped like {"title": "...", "description": "...", "tasks": [{"title": "..."}]}.
Use 2 to 6 small, concrete tasks a child can check off. No markdown, no prose.`

const chatSystemPrompt = `You are a friendly helper inside a family rewards app.
Answer questions about goals, tasks, stars and coins in one or two short paragraphs
suitable for both parents and children.`

// completer is the slice of the OpenAI client the assistant uses.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Suggestion is a proposed goal a parent can accept or edit.
type Suggestion struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tasks       []SuggestedTask `json:"tasks"`
}

type SuggestedTask struct {
	Title string `json:"title"`
}

type Assistant struct {
	client completer
	model  string
}

func New(apiKey, model string) *Assistant {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Assistant{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// SuggestGoal asks the model for a goal shaped around the prompt.
func (a *Assistant) SuggestGoal(ctx context.Context, prompt string) (*Suggestion, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoSuggestion
	}

	var s Suggestion
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSuggestion, err)
	}
	if strings.TrimSpace(s.Title) == "" || len(s.Tasks) == 0 {
		return nil, ErrNoSuggestion
	}
	return &s, nil
}

// Chat answers a free-form question about the app.
func (a *Assistant) Chat(ctx context.Context, question string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoSuggestion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Models sometimes wrap JSON in a markdown fence despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
