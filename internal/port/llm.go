package port

import (
	"context"
	"errors"
)

// ErrRateLimited marks a generation failure caused by provider rate
// limiting. Callers may retry these; any other error is terminal for the
// request that produced it.
var ErrRateLimited = errors.New("rate limited")

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates text based on the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithSystem generates text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
