package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/log"
	"github.com/felixgeelhaar/verdict/internal/provider"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.8, cfg.Simulation.PassRate)
	assert.Equal(t, 300*time.Millisecond, cfg.Simulation.StepDelay)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.True(t, cfg.History.Enabled())
	assert.Equal(t, DefaultHistoryDSN, cfg.HistoryDSN())
	assert.Len(t, cfg.Providers, 3)
	assert.Equal(t, "OPENAI_API_KEY", cfg.ProviderSettings(provider.KindOpenAI).APIKeyEnv)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(missing, true)
	require.Error(t, err)
	assert.Equal(t, verdicterrors.ErrCodeConfigNotFound, verdicterrors.CodeOf(err))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VERDICT_TEST_MODEL", "gpt-4.1")

	path := writeConfig(t, `
log:
  level: debug
  format: json
simulation:
  pass_rate: 0.5
providers:
  OpenAI:
    model: ${VERDICT_TEST_MODEL}
    timeout: 5s
  anthropic:
    api_key_env: MY_CLAUDE_KEY
execution:
  provider: openai
  timeout: 2m
history:
  driver: none
concurrency: 4
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Simulation.PassRate)
	assert.Equal(t, 300*time.Millisecond, cfg.Simulation.StepDelay, "unset fields keep defaults")
	assert.Equal(t, "openai", cfg.Execution.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Execution.Timeout)
	assert.False(t, cfg.History.Enabled())
	assert.Equal(t, 4, cfg.Concurrency)

	openai := cfg.ProviderSettings(provider.KindOpenAI)
	assert.Equal(t, "gpt-4.1", openai.Model)
	assert.Equal(t, 5*time.Second, openai.Timeout)
	assert.Equal(t, "https://api.openai.com/v1", openai.BaseURL)

	anthropic := cfg.ProviderSettings(provider.KindAnthropic)
	assert.Equal(t, "MY_CLAUDE_KEY", anthropic.APIKeyEnv)
	assert.Equal(t, 500, anthropic.MaxTokens)

	gemini := cfg.ProviderSettings(provider.KindGemini)
	assert.Equal(t, "GEMINI_API_KEY", gemini.APIKeyEnv)

	lc := cfg.LoggerConfig()
	assert.Equal(t, log.LevelDebug, lc.Level)
	assert.Equal(t, log.FormatJSON, lc.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode verdicterrors.ErrorCode
	}{
		{name: "bad yaml", content: "simulation: [", wantCode: verdicterrors.ErrCodeConfigParse},
		{name: "bad duration", content: "simulation:\n  step_delay: soon\n", wantCode: verdicterrors.ErrCodeConfigParse},
		{name: "pass rate above one", content: "simulation:\n  pass_rate: 1.5\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "negative delay", content: "simulation:\n  step_delay: -1s\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "unknown provider entry", content: "providers:\n  mistral:\n    model: x\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "unknown default provider", content: "execution:\n  provider: mistral\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "temperature", content: "providers:\n  gemini:\n    temperature: 3\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "unknown driver", content: "history:\n  driver: mysql\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "postgres without dsn", content: "history:\n  driver: postgres\n  dsn: \"\"\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "zero concurrency", content: "concurrency: 0\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "log format", content: "log:\n  format: xml\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
		{name: "sample rate", content: "telemetry:\n  sample_rate: 2\n", wantCode: verdicterrors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), true)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, verdicterrors.CodeOf(err))
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VERDICT_TEST_ENV_KEY=from-file\n"), 0o644))

	t.Setenv("VERDICT_TEST_ENV_KEY", "")
	os.Unsetenv("VERDICT_TEST_ENV_KEY")

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "from-file", os.Getenv("VERDICT_TEST_ENV_KEY"))

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), false))

	err := LoadEnvFile(filepath.Join(dir, "missing.env"), true)
	require.Error(t, err)
	assert.Equal(t, verdicterrors.ErrCodeEnvFile, verdicterrors.CodeOf(err))
}

func TestLoadEnvFile_ExistingVariablesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VERDICT_TEST_ENV_KEEP=from-file\n"), 0o644))
	t.Setenv("VERDICT_TEST_ENV_KEEP", "from-shell")

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "from-shell", os.Getenv("VERDICT_TEST_ENV_KEEP"))
}
