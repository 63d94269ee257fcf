package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Verdict.
//
// Every Record method is safe to call on a nil *Metrics, so instrumentation
// stays optional for callers.
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	CommandErrors     *prometheus.CounterVec

	// Test case execution metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	Fallbacks         *prometheus.CounterVec

	// Provider operation metrics
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec

	// History store metrics
	HistoryWrites *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Command metrics
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verdict_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		CommandErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_command_errors_total",
				Help: "Total number of command errors",
			},
			[]string{"command", "error_code"},
		),

		// Execution metrics
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_executions_total",
				Help: "Total number of test case executions by mode and verdict",
			},
			[]string{"mode", "verdict"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verdict_execution_duration_seconds",
				Help:    "Test case execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"mode"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_fallbacks_total",
				Help: "Total number of AI executions that fell back to simulation",
			},
			[]string{"provider", "reason"},
		),

		// Provider metrics
		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_provider_calls_total",
				Help: "Total number of AI provider API calls",
			},
			[]string{"provider", "model", "success"},
		),
		ProviderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verdict_provider_latency_seconds",
				Help:    "AI provider API call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"provider", "model"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_provider_errors_total",
				Help: "Total number of AI provider errors",
			},
			[]string{"provider", "model", "error_type"},
		),

		// History metrics
		HistoryWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_history_writes_total",
				Help: "Total number of execution history writes",
			},
			[]string{"driver", "operation", "success"},
		),

		// Error metrics (by structured error code)
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verdict_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordCommand records one CLI command invocation
func (m *Metrics) RecordCommand(command string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(errorCode == "")).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	if errorCode != "" {
		m.CommandErrors.WithLabelValues(command, errorCode).Inc()
		m.Errors.WithLabelValues(errorCode, "cli").Inc()
	}
}

// RecordExecution records a finished test case execution
func (m *Metrics) RecordExecution(mode, verdict string, seconds float64) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(mode, verdict).Inc()
	m.ExecutionDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordFallback records an AI execution that was replaced by simulation
func (m *Metrics) RecordFallback(provider, reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(provider, reason).Inc()
}

// RecordProviderCall records one adapter round trip
func (m *Metrics) RecordProviderCall(provider, model string, latency time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, model, strconv.FormatBool(err == nil)).Inc()
	m.ProviderLatency.WithLabelValues(provider, model).Observe(latency.Seconds())
	if err != nil {
		m.ProviderErrors.WithLabelValues(provider, model, errorType(err)).Inc()
	}
}

// RecordHistoryWrite records one history store write
func (m *Metrics) RecordHistoryWrite(driver, operation string, err error) {
	if m == nil {
		return
	}
	m.HistoryWrites.WithLabelValues(driver, operation, strconv.FormatBool(err == nil)).Inc()
}

// errorTyper is implemented by errors that classify themselves.
type errorTyper interface {
	ErrorType() string
}

func errorType(err error) string {
	var t errorTyper
	if errors.As(err, &t) {
		return t.ErrorType()
	}
	return "unknown"
}
