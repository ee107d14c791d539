package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/embedding"
	"github.com/Veraticus/balance/internal/ensemble"
	"github.com/Veraticus/balance/internal/history"
	"github.com/Veraticus/balance/internal/llm"
	"github.com/Veraticus/balance/internal/prediction"
	"github.com/Veraticus/balance/internal/rules"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/balance/balance.db"

// Config is the complete, typed application configuration.
type Config struct {
	Database     DatabaseConfig    `mapstructure:"database"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Ensemble     EnsembleConfig    `mapstructure:"ensemble"`
	Sources      SourcesConfig     `mapstructure:"sources"`
	Rules        rules.Table       `mapstructure:"rules"`
	History      history.Config    `mapstructure:"history"`
	LLM          llm.Config        `mapstructure:"llm"`
	SecondaryLLM llm.Config        `mapstructure:"secondary_llm"`
	Embedding    embedding.Config  `mapstructure:"embedding"`
	Prediction   prediction.Config `mapstructure:"prediction"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnsembleConfig adds the fan-out ceiling to the combiner settings.
type EnsembleConfig struct {
	ensemble.Config `mapstructure:",squash"`
	Ceiling         time.Duration `mapstructure:"ceiling"`
}

// SourceConfig holds one source's switch, vote weight and per-attempt timeout.
type SourceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Weight  float64       `mapstructure:"weight"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SourcesConfig lists the closed set of classification sources.
type SourcesConfig struct {
	Rule        SourceConfig `mapstructure:"rule"`
	History     SourceConfig `mapstructure:"history"`
	AI          SourceConfig `mapstructure:"ai"`
	SecondaryAI SourceConfig `mapstructure:"secondary_ai"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Ensemble: EnsembleConfig{
			Config:  ensemble.DefaultConfig(),
			Ceiling: 8 * time.Second,
		},
		Sources: SourcesConfig{
			Rule:        SourceConfig{Enabled: true, Weight: 0.2, Timeout: time.Second},
			History:     SourceConfig{Enabled: true, Weight: 0.3, Timeout: time.Second},
			AI:          SourceConfig{Enabled: true, Weight: 0.5, Timeout: 3 * time.Second},
			SecondaryAI: SourceConfig{Enabled: false, Weight: 0.3, Timeout: 3 * time.Second},
		},
		Rules:   rules.DefaultTable(),
		History: history.DefaultConfig(),
		LLM: llm.Config{
			Provider:    "anthropic",
			Model:       "claude-3-5-haiku-latest",
			CacheTTL:    24 * time.Hour,
			CacheSize:   10000,
			RateLimit:   60,
			Temperature: 0.2,
			MaxTokens:   256,
		},
		SecondaryLLM: llm.Config{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			CacheTTL:    24 * time.Hour,
			CacheSize:   10000,
			RateLimit:   60,
			Temperature: 0.2,
			MaxTokens:   256,
		},
		Embedding:  embedding.DefaultConfig(),
		Prediction: prediction.DefaultConfig(),
	}
}

// Load overlays viper's settings on the defaults, fills API keys from the
// provider's own environment variables when unset, and validates the result.
func Load(v *viper.Viper) (Config, error) {
	RegisterDefaults(v)

	// Decode into a zero value; decoding over populated slices keeps stale tail entries.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.LLM.APIKey = resolveAPIKey(cfg.LLM.Provider, cfg.LLM.APIKey)
	cfg.SecondaryLLM.APIKey = resolveAPIKey(cfg.SecondaryLLM.Provider, cfg.SecondaryLLM.APIKey)
	cfg.Embedding.APIKey = resolveAPIKey(cfg.Embedding.Provider, cfg.Embedding.APIKey)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json", "":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.Logging.Format))
	}

	if err := c.Ensemble.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Ensemble.Ceiling <= 0 {
		errs = append(errs, errors.New("ensemble.ceiling must be positive"))
	}

	enabled := 0
	for _, src := range c.Sources.named() {
		if src.Weight < 0 {
			errs = append(errs, fmt.Errorf("sources.%s.weight must not be negative", src.name))
		}
		if src.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("sources.%s.timeout must be positive", src.name))
		}
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		errs = append(errs, errors.New("at least one source must be enabled"))
	}

	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.History.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Prediction.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, errors.New("embedding.dimensions must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

type namedSource struct {
	SourceConfig
	name string
}

func (s SourcesConfig) named() []namedSource {
	return []namedSource{
		{s.Rule, "rule"},
		{s.History, "history"},
		{s.AI, "ai"},
		{s.SecondaryAI, "secondary_ai"},
	}
}

// RegisterDefaults seeds v with every default so environment overrides such as
// BALANCE_LLM_API_KEY resolve during Unmarshal.
func RegisterDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("ensemble.strategy", string(d.Ensemble.Strategy))
	v.SetDefault("ensemble.high_confidence", d.Ensemble.HighConfidence)
	v.SetDefault("ensemble.min_agreement", d.Ensemble.MinAgreement)
	v.SetDefault("ensemble.review_below", d.Ensemble.ReviewBelow)
	v.SetDefault("ensemble.ceiling", d.Ensemble.Ceiling)

	for _, src := range d.Sources.named() {
		prefix := "sources." + src.name + "."
		v.SetDefault(prefix+"enabled", src.Enabled)
		v.SetDefault(prefix+"weight", src.Weight)
		v.SetDefault(prefix+"timeout", src.Timeout)
	}

	v.SetDefault("rules.always_need", d.Rules.AlwaysNeed)
	v.SetDefault("rules.always_want", d.Rules.AlwaysWant)
	v.SetDefault("rules.thresholds", d.Rules.Thresholds)

	v.SetDefault("history.min_samples", d.History.MinSamples)
	v.SetDefault("history.personalization_boost", d.History.PersonalizationBoost)

	registerLLMDefaults(v, "llm", d.LLM)
	registerLLMDefaults(v, "secondary_llm", d.SecondaryLLM)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	v.SetDefault("prediction.weeks", d.Prediction.Weeks)
	v.SetDefault("prediction.threshold", d.Prediction.Threshold)
	v.SetDefault("prediction.min_weeks", d.Prediction.MinWeeks)
	v.SetDefault("prediction.want_ratio_threshold", d.Prediction.WantRatioThreshold)
	v.SetDefault("prediction.min_total_spend", d.Prediction.MinTotalSpend)
	v.SetDefault("prediction.search_limit", d.Prediction.SearchLimit)
}

func registerLLMDefaults(v *viper.Viper, prefix string, c llm.Config) {
	v.SetDefault(prefix+".provider", c.Provider)
	v.SetDefault(prefix+".model", c.Model)
	v.SetDefault(prefix+".api_key", c.APIKey)
	v.SetDefault(prefix+".base_url", c.BaseURL)
	v.SetDefault(prefix+".cache_ttl", c.CacheTTL)
	v.SetDefault(prefix+".cache_size", c.CacheSize)
	v.SetDefault(prefix+".rate_limit", c.RateLimit)
	v.SetDefault(prefix+".temperature", c.Temperature)
	v.SetDefault(prefix+".max_tokens", c.MaxTokens)
}
