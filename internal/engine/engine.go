package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/verdict/internal/log"
	"github.com/felixgeelhaar/verdict/internal/metrics"
	"github.com/felixgeelhaar/verdict/internal/provider"
	"github.com/felixgeelhaar/verdict/internal/telemetry"
)

// Engine executes test case descriptors. It keeps no per-execution state, so a
// single Engine may serve concurrent Execute calls.
type Engine struct {
	registry  provider.AdapterRegistry
	simulator *Simulator
	logger    *log.Logger
	metrics   *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the adapters used for the AI path.
func WithRegistry(r provider.AdapterRegistry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithSimulator sets the simulation strategy.
func WithSimulator(s *Simulator) Option {
	return func(e *Engine) { e.simulator = s }
}

// WithLogger sets the operator-facing logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. Without a registry every AI request falls back to simulation.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = provider.NewRegistry()
	}
	if e.simulator == nil {
		e.simulator = NewSimulator(DefaultSimulationConfig())
	}
	if e.logger == nil {
		e.logger = log.DefaultLogger()
	}
	return e
}

// Execute runs one test case and always returns a well-formed Result.
//
// The AI path is taken only when the config names a provider and carries a
// credential. Adapter errors, unsupported providers, malformed replies and
// cancellation fall back to simulation. Any other error or panic yields a
// Failed result carrying the log accumulated so far.
func (e *Engine) Execute(ctx context.Context, req Request) (result Result) {
	start := time.Now()
	trail := &logBuffer{}

	ctx, span := telemetry.StartExecutionSpan(ctx, req.Descriptor.ID, req.Descriptor.Title)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = e.fault(start, trail, req, fmt.Errorf("panic: %v", r))
		}
		e.metrics.RecordExecution(string(result.Mode), string(result.Verdict), result.ElapsedSeconds)
		span.SetAttributes(
			attribute.String("mode", string(result.Mode)),
			attribute.String("verdict", string(result.Verdict)),
			attribute.Bool("ai_used", result.AIUsed),
		)
	}()

	if !req.Config.wantsAI() {
		out := e.simulator.Run(ctx, req.Descriptor)
		trail.entries = append(trail.entries, out.Log...)
		return e.wrap(start, trail, req, out, ModeSimulation)
	}

	out, err := e.executeAI(ctx, req, trail)
	if err == nil {
		res := e.wrap(start, trail, req, out, ModeAI)
		res.AIUsed = true
		res.Provider = req.Config.Provider
		return res
	}

	reason, ok := fallbackReason(err)
	if !ok {
		return e.fault(start, trail, req, err)
	}

	trail.add(CategoryWarning, "AI execution failed: %v. Falling back to simulation.", err)
	e.logger.WithContext(ctx).WithError(err).Warn("AI execution failed, falling back to simulation",
		"provider", req.Config.Provider.String(),
		"reason", reason,
		"test_case", req.Descriptor.Title,
	)
	e.metrics.RecordFallback(req.Config.Provider.String(), reason)

	out = e.simulator.Run(ctx, req.Descriptor)
	trail.entries = append(trail.entries, out.Log...)
	return e.wrap(start, trail, req, out, ModeFallback)
}

// executeAI performs the adapter call and validates the reply. Only the
// validator's entries are appended on success.
func (e *Engine) executeAI(ctx context.Context, req Request, trail *logBuffer) (Outcome, error) {
	kind := req.Config.Provider
	trail.add(CategoryInfo, "Starting AI-driven execution with %s...", kind)

	adapter, err := e.registry.Get(kind)
	if err != nil {
		return Outcome{}, err
	}

	model := req.Config.Model
	if model == "" {
		model = adapter.DefaultModel()
	}

	d := req.Descriptor
	prompt, err := provider.BuildValidationPrompt(provider.PromptInput{
		Title:          d.Title,
		Description:    d.Description,
		Steps:          d.Steps,
		ExpectedResult: d.ExpectedResult,
		Priority:       string(d.Priority),
	})
	if err != nil {
		return Outcome{}, err
	}

	trail.add(CategoryInfo, "Sending test case to %s (%s)...", kind.DisplayName(), model)

	callCtx, span := telemetry.StartProviderSpan(ctx, kind.String(), "validate")
	span.SetAttributes(attribute.String("model", model))
	callStart := time.Now()

	raw, err := adapter.Call(callCtx, provider.CallRequest{
		Credential: req.Config.Credential,
		Model:      model,
		Prompt:     prompt,
	})
	e.metrics.RecordProviderCall(kind.String(), model, time.Since(callStart), err)
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		return Outcome{}, err
	}
	telemetry.RecordSuccess(span)
	span.End()

	trail.add(CategoryInfo, "Received AI validation response")

	out, err := ValidateResponse(raw)
	if err != nil {
		return Outcome{}, err
	}
	trail.entries = append(trail.entries, out.Log...)

	return out, nil
}

func (e *Engine) wrap(start time.Time, trail *logBuffer, req Request, out Outcome, mode Mode) Result {
	return Result{
		Verdict:        out.Verdict,
		ElapsedSeconds: elapsedSeconds(start),
		ErrorMessage:   out.ErrorMessage,
		Log:            trail.entries,
		ExecutedBy:     req.ExecutedBy,
		Mode:           mode,
	}
}

func (e *Engine) fault(start time.Time, trail *logBuffer, req Request, err error) Result {
	e.logger.WithError(err).Error("execution aborted by internal error",
		"test_case", req.Descriptor.Title,
	)
	return Result{
		Verdict:        Failed,
		ElapsedSeconds: elapsedSeconds(start),
		ErrorMessage:   fmt.Sprintf("Execution error: %v", err),
		Log:            trail.entries,
		ExecutedBy:     req.ExecutedBy,
		Mode:           ModeFault,
	}
}

// fallbackReason classifies err against the errors that trigger fallback.
// ok is false for any other error.
func fallbackReason(err error) (reason string, ok bool) {
	var adapterErr *provider.AdapterError
	var unsupported *provider.UnsupportedProviderError
	var malformed *MalformedResponseError

	switch {
	case errors.As(err, &adapterErr):
		return "adapter_" + string(adapterErr.Reason), true
	case errors.As(err, &unsupported):
		return "unsupported_provider", true
	case errors.As(err, &malformed):
		return "malformed_response", true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled", true
	default:
		return "", false
	}
}

func elapsedSeconds(start time.Time) float64 {
	s := time.Since(start).Seconds()
	if s < 0 {
		s = 0
	}
	return math.Round(s*100) / 100
}
