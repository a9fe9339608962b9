package summary

import (
	"context"
	"fmt"
	"strings"

	"stoneware/internal/llm"
)

// LLM summarizes through an OpenRouter-compatible chat endpoint.
type LLM struct {
	client *llm.Client
}

// NewLLM wraps client.
func NewLLM(client *llm.Client) *LLM {
	return &LLM{client: client}
}

const llmResponseContract = systemPrompt + ` Respond with JSON only: {"summary": "<text>"}.`

// Summarize asks the model for a JSON-wrapped summary.
func (s *LLM) Summarize(ctx context.Context, req Request) (string, error) {
	req = req.Normalized()
	if err := validate(req); err != nil {
		return "", err
	}
	content, err := s.client.CompleteJSON(ctx, llmResponseContract, Prompt(req))
	if err != nil {
		return "", fmt.Errorf("summary llm: %w", err)
	}
	var parsed struct {
		Summary string `json:"summary"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("summary llm: parse payload: %w", err)
	}
	text := strings.TrimSpace(parsed.Summary)
	if text == "" {
		return "", ErrNoSummary
	}
	return text, nil
}
