// Package app assembles the search core from configuration. Both the HTTP
// server and the CLI build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/go-property-search/internal/adapter/ai"
	"github.com/arturoeanton/go-property-search/internal/adapter/source"
	"github.com/arturoeanton/go-property-search/internal/filter"
	"github.com/arturoeanton/go-property-search/internal/intent"
	"github.com/arturoeanton/go-property-search/internal/labeler"
	"github.com/arturoeanton/go-property-search/internal/listing"
	"github.com/arturoeanton/go-property-search/internal/port"
	"github.com/arturoeanton/go-property-search/internal/scoring"
	"github.com/arturoeanton/go-property-search/internal/service"
	"github.com/arturoeanton/go-property-search/pkg/config"
)

const narrationTemperature = 0.7

// Core is the wired search pipeline.
type Core struct {
	Repo        *listing.Repository
	Recommender *service.RecommendService
	Search      *service.SearchService
	Refresher   *service.Refresher
	Narrator    string

	closers []func() error
}

// Close releases adapters opened by NewCore.
func (c *Core) Close() {
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// NewCore builds the repository, ranking pipeline, narrator and refresher.
// Listings are not loaded until Refresher.Refresh or Start is called.
func NewCore(cfg *config.Config) (*Core, error) {
	c := &Core{}

	src, err := c.listingSource(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	narrator, err := NewNarrator(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Narrator = cfg.Narrator
	if narrator == nil {
		c.Narrator = "none"
	}

	c.Repo = listing.NewRepository()
	c.Recommender = service.NewRecommendService(c.Repo, filter.NewPipeline(), scoring.NewEngine())
	c.Search = service.NewSearchService(intent.NewParser(), c.Recommender, narrator, cfg.NarrationTimeout)
	c.Refresher = service.NewRefresher(src, labeler.New(), c.Repo, nil, cfg.RefreshInterval, cfg.RefreshTimeout)
	return c, nil
}

// Load performs one synchronous refresh.
func (c *Core) Load(ctx context.Context) (int, error) {
	return c.Refresher.Refresh(ctx)
}

// listingSource chains the remote API (when enabled) and the CSV file.
func (c *Core) listingSource(cfg *config.Config) (port.ListingSource, error) {
	var sources []port.ListingSource

	if cfg.UseRealtimeData {
		cache, err := source.OpenCache(cfg.CacheDir, cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, cache.Close)

		remote, err := source.NewRemoteSource(source.RemoteConfig{
			Host:     cfg.RapidAPIHost,
			Endpoint: cfg.RapidAPIEndpoint,
			APIKey:   cfg.RapidAPIKey,
			PageSize: cfg.RapidAPIMaxResults,
			Pages:    cfg.RapidAPIPages,
		}, cache)
		if err != nil {
			if !cfg.FallbackToCSV {
				return nil, err
			}
			slog.Warn("realtime data disabled", "error", err)
		} else {
			sources = append(sources, remote)
		}
	}

	if !cfg.UseRealtimeData || cfg.FallbackToCSV {
		sources = append(sources, source.NewCSVSource(cfg.DataCSVPath))
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return source.NewFallbackSource(sources...), nil
}

// NewNarrator returns the configured AI narrator, or nil for template-only replies.
func NewNarrator(cfg *config.Config) (port.Narrator, error) {
	var provider port.AIProvider
	switch cfg.Narrator {
	case "ollama":
		provider = ai.NewOllamaProvider(ai.OllamaConfig{
			BaseURL:     cfg.OllamaChatURL,
			Model:       cfg.OllamaChatModel,
			Token:       cfg.OllamaChatToken,
			Temperature: narrationTemperature,
		})
	case "openai":
		p, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			APIKey:      cfg.OpenAIAPIKey,
			Temperature: narrationTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("openai narrator: %w", err)
		}
		provider = p
	default:
		return nil, nil
	}
	slog.Info("narrator enabled", "provider", cfg.Narrator, "model", provider.ModelName())
	return service.NewAINarrator(provider, cfg.AppName), nil
}
