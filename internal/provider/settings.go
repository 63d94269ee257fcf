package provider

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Settings holds the per-provider call parameters.
type Settings struct {
	// BaseURL is the API root the adapter talks to
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Model is the default model when the execution config names none
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// MaxTokens bounds the reply length
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// Temperature is the sampling temperature; nil means the provider default
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// Timeout bounds a single call; the caller's context may cut it shorter
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// APIKeyEnv names the environment variable holding the credential
	APIKeyEnv string `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
}

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.3
	defaultTimeout     = 60 * time.Second
)

// DefaultSettings returns the shipped defaults for a provider family.
func DefaultSettings(kind Kind) Settings {
	base := Settings{
		MaxTokens:   defaultMaxTokens,
		Temperature: floatPtr(defaultTemperature),
		Timeout:     defaultTimeout,
	}

	switch kind {
	case KindOpenAI:
		base.BaseURL = "https://api.openai.com/v1"
		base.Model = "gpt-4o-mini"
		base.APIKeyEnv = "OPENAI_API_KEY"
	case KindAnthropic:
		base.BaseURL = "https://api.anthropic.com/v1"
		base.Model = "claude-sonnet-4-20250514"
		base.APIKeyEnv = "ANTHROPIC_API_KEY"
	case KindGemini:
		base.BaseURL = "https://generativelanguage.googleapis.com/"
		base.Model = "gemini-2.0-flash"
		base.APIKeyEnv = "GEMINI_API_KEY"
	}

	return base
}

// WithDefaults fills every unset field from the provider's defaults.
// An explicit temperature of 0 is kept.
func (s Settings) WithDefaults(kind Kind) Settings {
	def := DefaultSettings(kind)
	if s.BaseURL == "" {
		s.BaseURL = def.BaseURL
	}
	if s.Model == "" {
		s.Model = def.Model
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = def.MaxTokens
	}
	if s.Temperature == nil {
		s.Temperature = def.Temperature
	}
	if s.Timeout == 0 {
		s.Timeout = def.Timeout
	}
	if s.APIKeyEnv == "" {
		s.APIKeyEnv = def.APIKeyEnv
	}
	return s
}

// Validate checks the settings for obviously wrong values.
func (s Settings) Validate() error {
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if t := s.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// Credential reads the provider credential from the environment.
func (s Settings) Credential() string {
	if s.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(s.APIKeyEnv))
}

// temperature returns the configured sampling temperature or the shipped default.
func (s Settings) temperature() float64 {
	if s.Temperature == nil {
		return defaultTemperature
	}
	return *s.Temperature
}

func floatPtr(v float64) *float64 { return &v }

// resolveModel picks the call's model, falling back to the settings default.
func (s Settings) resolveModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return s.Model
}
