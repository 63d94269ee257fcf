package cmd

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/verdict/internal/log"
	"github.com/felixgeelhaar/verdict/internal/metrics"
	"github.com/felixgeelhaar/verdict/internal/telemetry"
	"github.com/felixgeelhaar/verdict/internal/version"
)

// setupObservability configures logging, metrics and optional tracing for a.
// It returns a cleanup function that flushes the tracer.
func setupObservability(ctx context.Context, a *app) func() {
	a.logger = newLogger(a)
	log.SetDefaultLogger(a.logger)

	a.registry, a.metrics = metrics.NewRegistry()

	return setupTelemetry(ctx, a)
}

func newLogger(a *app) *log.Logger {
	lc := a.cfg.LoggerConfig()
	lc.Output = log.NewOutput(a.stderr)
	lc.ServiceVersion = version.GetInfo().Version

	if level := firstNonEmpty(a.logLevel, os.Getenv("VERDICT_LOG_LEVEL")); level != "" {
		lc.Level = log.ParseLevel(strings.ToLower(level))
	}
	if format := firstNonEmpty(a.logFormat, os.Getenv("VERDICT_LOG_FORMAT")); format != "" {
		lc.Format = log.ParseFormat(strings.ToLower(format))
	}

	return log.New(lc)
}

func setupTelemetry(ctx context.Context, a *app) func() {
	telemCfg := a.cfg.Telemetry
	telemCfg.Enabled = telemetryRequested(telemCfg.Enabled)
	if !telemCfg.Enabled {
		return func() {}
	}

	telemCfg.ServiceName = "verdict"
	telemCfg.ServiceVersion = version.GetInfo().Version
	if env := os.Getenv("VERDICT_ENV"); env != "" {
		telemCfg.Environment = env
	}
	if env := os.Getenv("VERDICT_TELEMETRY_ENDPOINT"); env != "" {
		telemCfg.Endpoint = env
	}
	telemCfg.SampleRate = telemetrySampleRate(telemCfg.SampleRate)

	shutdown, err := telemetry.InitProvider(ctx, telemCfg)
	if err != nil {
		a.logger.Warn("Failed to initialize telemetry", "error", err)
		return func() {}
	}

	a.logger.Info("Telemetry enabled",
		"endpoint", telemCfg.Endpoint,
		"sample_rate", telemCfg.SampleRate,
	)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Failed to flush telemetry", "error", err)
		}
	}
}

func telemetryRequested(configured bool) bool {
	if val := strings.ToLower(os.Getenv("VERDICT_TELEMETRY")); val != "" {
		return val == "on" || val == "true" || val == "1" || val == "enabled"
	}
	return configured
}

func telemetrySampleRate(configured float64) float64 {
	if env := os.Getenv("VERDICT_TELEMETRY_SAMPLE_RATE"); env != "" {
		if v, err := strconv.ParseFloat(env, 64); err == nil {
			return clampSampleRate(v)
		}
	}
	if configured > 0 {
		return clampSampleRate(configured)
	}
	return 1.0
}

func clampSampleRate(value float64) float64 {
	switch {
	case value <= 0:
		return 0.0
	case value >= 1:
		return 1.0
	default:
		return value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
