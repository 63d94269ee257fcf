// Package config loads the verdict configuration file and the optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/verdict/internal/engine"
	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/history"
	"github.com/felixgeelhaar/verdict/internal/log"
	"github.com/felixgeelhaar/verdict/internal/provider"
	"github.com/felixgeelhaar/verdict/internal/telemetry"
)

const (
	// DefaultPath is the config file read when --config is not given
	DefaultPath = ".verdict/config.yaml"

	// DefaultEnvFile is the env file read when --env-file is not given
	DefaultEnvFile = ".env"

	// DefaultHistoryDSN is the SQLite database used when history is enabled without a dsn
	DefaultHistoryDSN = ".verdict/history.db"
)

// Config is the complete configuration file.
type Config struct {
	Log         Log                                 `yaml:"log"`
	Simulation  engine.SimulationConfig             `yaml:"simulation"`
	Providers   map[provider.Kind]provider.Settings `yaml:"providers"`
	Execution   Execution                           `yaml:"execution"`
	History     History                             `yaml:"history"`
	Concurrency int                                 `yaml:"concurrency"`
	Telemetry   telemetry.Config                    `yaml:"telemetry"`
}

// Log selects operator log output.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Execution holds run defaults that flags may override.
type Execution struct {
	// Provider is the default provider selector; empty or "none" simulates
	Provider string `yaml:"provider"`

	Model string `yaml:"model"`

	// Timeout bounds one test case execution; zero means unbounded
	Timeout time.Duration `yaml:"timeout"`
}

// History selects the execution history store.
type History struct {
	// Driver is sqlite, postgres or none
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Enabled reports whether a history store is configured.
func (h History) Enabled() bool {
	return h.Driver != "" && h.Driver != history.DriverNone
}

// Default returns the built-in configuration.
func Default() *Config {
	providers := make(map[provider.Kind]provider.Settings, len(provider.Builtin))
	for _, kind := range provider.Builtin {
		providers[kind] = provider.DefaultSettings(kind)
	}

	return &Config{
		Log:         Log{Level: "warn", Format: "text"},
		Simulation:  engine.DefaultSimulationConfig(),
		Providers:   providers,
		History:     History{Driver: history.DriverSQLite, DSN: DefaultHistoryDSN},
		Concurrency: 1,
		Telemetry:   telemetry.DefaultConfig(),
	}
}

// Load reads the config file at path over the defaults.
//
// When explicit is false a missing file is not an error. Environment variables
// in the file are expanded before parsing.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return nil, verdicterrors.NewConfigNotFoundError(path)
			}
			return cfg, nil
		}
		return nil, verdicterrors.NewConfigParseError(path, err)
	}

	if err := Parse(cfg, data); err != nil {
		return nil, verdicterrors.NewConfigParseError(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML into cfg after expanding environment variables.
// Provider entries are merged over the provider defaults.
func Parse(cfg *Config, data []byte) error {
	expanded := os.ExpandEnv(string(data))

	overrides := cfg.Providers
	cfg.Providers = nil
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		cfg.Providers = overrides
		return err
	}

	merged := make(map[provider.Kind]provider.Settings, len(provider.Builtin))
	for kind, s := range overrides {
		merged[kind] = s
	}
	for kind, s := range cfg.Providers {
		kind = provider.Kind(strings.ToLower(strings.TrimSpace(string(kind))))
		merged[kind] = s.WithDefaults(kind)
	}
	cfg.Providers = merged

	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return verdicterrors.NewConfigInvalidError("simulation", err)
	}

	for kind, s := range c.Providers {
		if _, err := provider.ParseKind(string(kind)); err != nil {
			return verdicterrors.NewConfigInvalidError("providers", err)
		}
		if err := s.Validate(); err != nil {
			return verdicterrors.NewConfigInvalidError(fmt.Sprintf("providers.%s", kind), err)
		}
	}

	if _, err := provider.ParseKind(c.Execution.Provider); err != nil {
		return verdicterrors.NewConfigInvalidError("execution.provider", err)
	}
	if c.Execution.Timeout < 0 {
		return verdicterrors.NewConfigInvalidError("execution.timeout", fmt.Errorf("must be non-negative, got %s", c.Execution.Timeout))
	}

	switch c.History.Driver {
	case "", history.DriverNone, history.DriverSQLite:
	case history.DriverPostgres:
		if c.History.DSN == "" {
			return verdicterrors.NewConfigInvalidError("history.dsn", fmt.Errorf("postgres requires a dsn"))
		}
	default:
		return verdicterrors.NewConfigInvalidError("history.driver", fmt.Errorf("unknown driver %q (want sqlite, postgres or none)", c.History.Driver))
	}

	if c.Concurrency < 1 {
		return verdicterrors.NewConfigInvalidError("concurrency", fmt.Errorf("must be at least 1, got %d", c.Concurrency))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return verdicterrors.NewConfigInvalidError("telemetry.sample_rate", fmt.Errorf("must be between 0 and 1, got %v", c.Telemetry.SampleRate))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return verdicterrors.NewConfigInvalidError("log.format", fmt.Errorf("unknown format %q (want text or json)", c.Log.Format))
	}

	return nil
}

// LoggerConfig builds the logger configuration for this file.
func (c *Config) LoggerConfig() log.Config {
	lc := log.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = log.ParseLevel(strings.ToLower(c.Log.Level))
	}
	if c.Log.Format != "" {
		lc.Format = log.ParseFormat(strings.ToLower(c.Log.Format))
	}
	return lc
}

// HistoryDSN returns the configured dsn, defaulting SQLite to DefaultHistoryDSN.
func (c *Config) HistoryDSN() string {
	if c.History.DSN == "" && c.History.Driver == history.DriverSQLite {
		return DefaultHistoryDSN
	}
	return c.History.DSN
}

// ProviderSettings returns the settings for kind merged over its defaults.
func (c *Config) ProviderSettings(kind provider.Kind) provider.Settings {
	return c.Providers[kind].WithDefaults(kind)
}

// LoadEnvFile loads KEY=value pairs into the process environment.
// Existing variables win. When explicit is false a missing file is ignored.
func LoadEnvFile(path string, explicit bool) error {
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return verdicterrors.NewEnvFileError(path, err)
	}
	return nil
}
