package port

import (
	"context"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// AIProvider abstracts the LLM backend used for result narration.
// Implementations can target Ollama, OpenAI-compatible APIs, or anything similar.
type AIProvider interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Chat sends a prompt with optional context chunks and returns the complete response.
	Chat(ctx context.Context, systemPrompt string, userPrompt string, contextChunks []string) (string, error)
}

// Narrator produces prose describing a ranked result set.
// An error or empty string means the caller must use its deterministic fallback.
type Narrator interface {
	Narrate(ctx context.Context, query string, listings []domain.ScoredListing, intent domain.Intent) (string, error)
}
