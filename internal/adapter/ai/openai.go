package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// OpenAIProvider implements port.AIProvider over any OpenAI-compatible API.
type OpenAIProvider struct {
	client llms.Model
	cfg    OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIProvider creates a provider. An empty API key is sent as "none"
// for local services that do not authenticate.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "openai-narrator"),
	}, nil
}

// ModelName returns the configured model.
func (p *OpenAIProvider) ModelName() string {
	return p.cfg.Model
}

// Chat sends one system and one user message and returns the first choice.
func (p *OpenAIProvider) Chat(ctx context.Context, systemPrompt string, userPrompt string, contextChunks []string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userMessage(userPrompt, contextChunks))},
		},
	}

	resp, err := p.client.GenerateContent(ctx, content,
		llms.WithTemperature(p.cfg.Temperature),
		llms.WithMaxTokens(p.cfg.MaxTokens),
	)
	if err != nil {
		p.logger.Error("generate content failed", "model", p.cfg.Model, "err", err)
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) < 1 {
		return "", errors.New("openai chat: no choices returned")
	}
	return resp.Choices[0].Content, nil
}
