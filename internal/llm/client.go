package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
}

// ClassificationResponse contains the model's want/need judgment.
type ClassificationResponse struct {
	Label      string
	Reasoning  string
	Confidence float64
	AskUser    bool // The model asked for a human decision
}

// Config holds configuration for one LLM backend.
type Config struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int64         `mapstructure:"cache_size"`
	RateLimit   int           `mapstructure:"rate_limit"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// Enabled reports whether a provider is configured.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 256
)

func (c Config) temperature() float64 {
	if c.Temperature == 0 {
		return defaultTemperature
	}
	return c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}
