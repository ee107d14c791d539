package config

import (
	"os"
	"strings"
)

// providerKeyEnv lists the environment variables each provider's own tooling reads.
var providerKeyEnv = map[string][]string{
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"google":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
}

// resolveAPIKey prefers the configured key and falls back to the provider's
// conventional environment variables.
func resolveAPIKey(provider, configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range providerKeyEnv[strings.ToLower(provider)] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
