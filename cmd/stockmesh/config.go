package main

import (
	"fmt"
	"time"

	"github.com/hupe1980/stockmesh/cache"
	"github.com/hupe1980/stockmesh/config"
	"github.com/hupe1980/stockmesh/filings"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/market"
	"github.com/hupe1980/stockmesh/server"
)

// OpenAIConfig is read with prefix OPENAI.
type OpenAIConfig struct {
	APIKey      string  `split_words:"true"`
	BaseURL     string  `split_words:"true"`
	Model       string  `default:"gpt-4-turbo-preview"`
	Temperature float64 `default:"0.1"`
	MaxTokens   int64   `split_words:"true" default:"1000"`
}

// AnthropicConfig is read with prefix ANTHROPIC.
type AnthropicConfig struct {
	APIKey      string  `split_words:"true"`
	BaseURL     string  `split_words:"true"`
	Model       string  `default:"claude-3-5-sonnet-20241022"`
	Temperature float64 `default:"0.1"`
	MaxTokens   int64   `split_words:"true" default:"1000"`
}

// LLMConfig is read with prefix LLM.
type LLMConfig struct {
	Provider          string  `default:"openai"`
	RequestsPerMinute float64 `split_words:"true" default:"0"`
	Burst             int     `default:"1"`
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "openai", "anthropic":
		return nil
	}
	return fmt.Errorf("%w: LLM_PROVIDER must be openai or anthropic, got %q", config.ErrValidation, c.Provider)
}

// AgentConfig is read with prefix AGENT.
type AgentConfig struct {
	MaxIterations int           `split_words:"true" default:"10"`
	EnableCache   bool          `split_words:"true" default:"true"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"300s"`
	LogSteps      bool          `split_words:"true" default:"true"`
}

func (c *AgentConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: AGENT_MAX_ITERATIONS must be positive", config.ErrValidation)
	}
	return nil
}

// CacheConfig is read with prefix CACHE.
type CacheConfig struct {
	Backend string `default:"memory"`
}

func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case "memory", "redis":
		return nil
	}
	return fmt.Errorf("%w: CACHE_BACKEND must be memory or redis, got %q", config.ErrValidation, c.Backend)
}

// MarketConfig is read with prefix MARKET.
type MarketConfig struct {
	market.YahooConfig
	QuoteTTL time.Duration `envconfig:"QUOTE_TTL" default:"60s"`
}

// FilingsConfig is read with prefix FILINGS.
type FilingsConfig struct {
	filings.PostgresConfig
	Backend  string `default:"memory"`
	TopK     int    `envconfig:"TOP_K" default:"3"`
	SeedFile string `split_words:"true"`
}

func (c *FilingsConfig) Validate() error {
	switch c.Backend {
	case "memory":
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("%w: FILINGS_DSN is required for the postgres backend", config.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: FILINGS_BACKEND must be memory or postgres, got %q", config.ErrValidation, c.Backend)
	}
	return nil
}

// AppConfig groups every configuration section of the binary.
type AppConfig struct {
	OpenAI    *OpenAIConfig
	Anthropic *AnthropicConfig
	LLM       *LLMConfig
	Agent     *AgentConfig
	Cache     *CacheConfig
	Redis     *cache.RedisConfig
	Market    *MarketConfig
	Filings   *FilingsConfig
	HTTP      *server.Config
	Log       *logging.Config
}

func loadConfig() (*AppConfig, error) {
	var (
		app AppConfig
		err error
	)

	if app.OpenAI, err = config.New[OpenAIConfig]("OPENAI"); err != nil {
		return nil, err
	}
	if app.Anthropic, err = config.New[AnthropicConfig]("ANTHROPIC"); err != nil {
		return nil, err
	}
	if app.LLM, err = config.New[LLMConfig]("LLM"); err != nil {
		return nil, err
	}
	if app.Agent, err = config.New[AgentConfig]("AGENT"); err != nil {
		return nil, err
	}
	if app.Cache, err = config.New[CacheConfig]("CACHE"); err != nil {
		return nil, err
	}
	if app.Redis, err = config.New[cache.RedisConfig]("REDIS"); err != nil {
		return nil, err
	}
	if app.Market, err = config.New[MarketConfig]("MARKET"); err != nil {
		return nil, err
	}
	if app.Filings, err = config.New[FilingsConfig]("FILINGS"); err != nil {
		return nil, err
	}
	if app.HTTP, err = config.New[server.Config]("HTTP"); err != nil {
		return nil, err
	}
	if app.Log, err = config.New[logging.Config]("LOG"); err != nil {
		return nil, err
	}

	return &app, nil
}
