package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	RegisterDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	v := newViper(t, `
database:
  path: /tmp/balance-test.db
ensemble:
  strategy: consensus
  ceiling: 5s
sources:
  ai:
    weight: 0.6
    timeout: 2s
  secondary_ai:
    enabled: true
rules:
  always_want: [coffee, gaming, hobbies]
prediction:
  weeks: 6
`)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/balance-test.db", cfg.Database.Path)
	assert.Equal(t, model.StrategyConsensus, cfg.Ensemble.Strategy)
	assert.Equal(t, 5*time.Second, cfg.Ensemble.Ceiling)
	assert.InDelta(t, 0.85, cfg.Ensemble.HighConfidence, 1e-9)
	assert.InDelta(t, 0.6, cfg.Sources.AI.Weight, 1e-9)
	assert.Equal(t, 2*time.Second, cfg.Sources.AI.Timeout)
	assert.True(t, cfg.Sources.AI.Enabled)
	assert.True(t, cfg.Sources.SecondaryAI.Enabled)
	assert.Equal(t, []string{"coffee", "gaming", "hobbies"}, cfg.Rules.AlwaysWant)
	assert.Equal(t, 6, cfg.Prediction.Weeks)
	assert.Equal(t, 4, cfg.Prediction.MinWeeks)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 24*time.Hour, cfg.LLM.CacheTTL)
}

func TestLoadResolvesAPIKeysFromEnvironment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-env")

	v := newViper(t, `
secondary_llm:
  provider: gemini
embedding:
  provider: hash
`)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", cfg.LLM.APIKey)
	assert.Equal(t, "google-env", cfg.SecondaryLLM.APIKey)
	assert.Empty(t, cfg.Embedding.APIKey)

	v = newViper(t, `
llm:
  api_key: from-file
`)
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	v := newViper(t, `
sources:
  rule:
    weight: -1
`)
	_, err := Load(v)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "sources.rule.weight")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		message string
	}{
		{"empty database path", func(c *Config) { c.Database.Path = " " }, "database.path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"unknown strategy", func(c *Config) { c.Ensemble.Strategy = "vibes" }, "unknown ensemble strategy"},
		{"zero ceiling", func(c *Config) { c.Ensemble.Ceiling = 0 }, "ensemble.ceiling"},
		{"negative weight", func(c *Config) { c.Sources.History.Weight = -0.1 }, "sources.history.weight"},
		{"zero timeout", func(c *Config) { c.Sources.AI.Timeout = 0 }, "sources.ai.timeout"},
		{"no sources", func(c *Config) {
			c.Sources.Rule.Enabled = false
			c.Sources.History.Enabled = false
			c.Sources.AI.Enabled = false
			c.Sources.SecondaryAI.Enabled = false
		}, "at least one source"},
		{"bad threshold", func(c *Config) { c.Rules.Thresholds = map[string]float64{"dining": 0} }, "dining"},
		{"bad history", func(c *Config) { c.History.MinSamples = 0 }, "min_samples"},
		{"bad prediction", func(c *Config) { c.Prediction.Weeks = 0 }, "prediction.weeks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, common.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "balance"), dir)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("BALANCE_TEST_DIR", "/var/data")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", home},
		{"~/balance.db", filepath.Join(home, "balance.db")},
		{"$BALANCE_TEST_DIR/balance.db", "/var/data/balance.db"},
		{"/abs/path.db", "/abs/path.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}
