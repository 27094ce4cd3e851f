package main

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/stockmesh"
	"github.com/hupe1980/stockmesh/agent"
	"github.com/hupe1980/stockmesh/cache"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/filings"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/market"
	"github.com/hupe1980/stockmesh/model"
	"github.com/hupe1980/stockmesh/model/anthropic"
	"github.com/hupe1980/stockmesh/model/openai"
	"github.com/hupe1980/stockmesh/toolset"
)

// app holds the wired components and the resources to release on exit.
type app struct {
	mesh    *stockmesh.StockMesh
	quotes  market.Provider
	filings toolset.FilingSearcher
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func newModel(cfg *AppConfig) model.Model {
	var m model.Model

	switch cfg.LLM.Provider {
	case "anthropic":
		m = anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.Anthropic.APIKey
			o.BaseURL = cfg.Anthropic.BaseURL
			o.Model = anthropicsdk.Model(cfg.Anthropic.Model)
			o.Temperature = cfg.Anthropic.Temperature
			o.MaxTokens = cfg.Anthropic.MaxTokens
		})
	default:
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		m = openai.NewModelFromClient(client, func(o *openai.Options) {
			o.Model = cfg.OpenAI.Model
			o.Temperature = cfg.OpenAI.Temperature
			o.MaxCompletionTokens = cfg.OpenAI.MaxTokens
		})
	}

	return model.RateLimited(m, cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)
}

func newApp(ctx context.Context, cfg *AppConfig, logger logging.Logger) (*app, error) {
	a := &app{}

	m := newModel(cfg)
	logger.Info("app.model", "provider", m.Info().Provider, "model", m.Info().Name)

	var (
		agentCache cache.Cache[core.AgentResponse]
		quoteCache cache.Cache[market.Quote]
	)

	if cfg.Cache.Backend == "redis" {
		client, err := cfg.Redis.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)

		agentCache = cache.NewRedisCache[core.AgentResponse](client, func(o *cache.RedisOptions) {
			o.Prefix = "stockmesh:agent:"
			o.Expiration = cfg.Agent.CacheTTL
		})
		quoteCache = newQuoteCache(client, cfg)
	}

	yahoo, err := market.NewYahooClient(cfg.Market.YahooConfig)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("market client: %w", err)
	}
	a.quotes = market.NewCachedProvider(yahoo, quoteCache, cfg.Market.QuoteTTL)

	index, err := newIndex(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := index.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	a.filings = filings.NewQAEngine(index, m, func(o *filings.QAOptions) { o.Logger = logger })

	a.mesh, err = stockmesh.New(m, func(o *stockmesh.Options) {
		o.Quotes = a.quotes
		o.Filings = a.filings
		o.Logger = logger
		o.Toolset = append(o.Toolset, func(to *toolset.Options) {
			to.TopK = cfg.Filings.TopK
		})
		o.Agent = append(o.Agent, func(ao *agent.Options) {
			ao.MaxIterations = cfg.Agent.MaxIterations
			ao.EnableCache = cfg.Agent.EnableCache
			ao.CacheTTL = cfg.Agent.CacheTTL
			ao.LogReasoningSteps = cfg.Agent.LogSteps
			ao.Cache = agentCache
		})
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func newQuoteCache(client *redis.Client, cfg *AppConfig) cache.Cache[market.Quote] {
	return cache.NewRedisCache[market.Quote](client, func(o *cache.RedisOptions) {
		o.Prefix = "stockmesh:quote:"
		o.Expiration = cfg.Market.QuoteTTL
	})
}

func newIndex(ctx context.Context, cfg *AppConfig, logger logging.Logger) (filings.Index, error) {
	var ix filings.Index

	switch cfg.Filings.Backend {
	case "postgres":
		pg, err := filings.NewPostgresIndexFromConfig(ctx, cfg.Filings.PostgresConfig)
		if err != nil {
			return nil, err
		}
		ix = pg
	default:
		ix = filings.NewInMemoryIndex()
	}

	if cfg.Filings.SeedFile != "" {
		n, err := filings.SeedFile(ctx, ix, cfg.Filings.SeedFile)
		if err != nil {
			if c, ok := ix.(interface{ Close() error }); ok {
				_ = c.Close()
			}
			return nil, err
		}
		logger.Info("app.filings.seeded", "backend", cfg.Filings.Backend, "chunks", n)
	}

	return ix, nil
}
