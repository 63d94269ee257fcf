package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/felixgeelhaar/verdict/internal/steps"
)

const (
	// DefaultPassRate is the probability that a simulated run passes
	DefaultPassRate = 0.8

	// DefaultStepDelay is the pause taken before logging each simulated step
	DefaultStepDelay = 300 * time.Millisecond

	previewRunes = 60
)

// SimulationConfig holds the tunables of the simulation strategy.
type SimulationConfig struct {
	PassRate  float64       `yaml:"pass_rate" json:"pass_rate"`
	StepDelay time.Duration `yaml:"step_delay" json:"step_delay"`
}

// DefaultSimulationConfig returns the shipped simulation tunables.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		PassRate:  DefaultPassRate,
		StepDelay: DefaultStepDelay,
	}
}

// Validate checks the tunables are in range.
func (c SimulationConfig) Validate() error {
	if c.PassRate < 0 || c.PassRate > 1 {
		return fmt.Errorf("pass_rate must be between 0 and 1, got %v", c.PassRate)
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("step_delay must be non-negative, got %s", c.StepDelay)
	}
	return nil
}

// Rand is the randomness the simulator draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// globalRand uses the math/rand/v2 top-level source, which is safe for concurrent use.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Simulator walks the parsed steps of a descriptor and draws a weighted verdict.
// It holds no per-run state and may be shared between goroutines.
type Simulator struct {
	cfg  SimulationConfig
	rand Rand
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithRand replaces the random source.
func WithRand(r Rand) SimulatorOption {
	return func(s *Simulator) {
		if r != nil {
			s.rand = r
		}
	}
}

// NewSimulator creates a simulator.
func NewSimulator(cfg SimulationConfig, opts ...SimulatorOption) *Simulator {
	s := &Simulator{cfg: cfg, rand: globalRand{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the simulator tunables.
func (s *Simulator) Config() SimulationConfig {
	return s.cfg
}

// Run simulates the descriptor. The log always holds exactly 2 + N + 1 entries
// for N parsed steps.
//
// The per-step delay stops as soon as ctx is done; the remaining steps are
// still logged so the outcome stays well formed.
func (s *Simulator) Run(ctx context.Context, d Descriptor) Outcome {
	var log logBuffer

	log.add(CategoryInfo, "Starting simulated execution...")

	parsed := steps.Parse(d.Steps)
	log.add(CategoryInfo, "Found %d steps to execute", len(parsed))

	for i, step := range parsed {
		s.pause(ctx)
		log.add(CategoryStep, "Step %d: %s", i+1, preview(step))
	}

	if s.rand.Float64() < s.cfg.PassRate {
		log.add(CategorySuccess, "All steps executed successfully")
		return Outcome{Verdict: Passed, Log: log.entries}
	}

	failedStep := s.rand.IntN(len(parsed)) + 1
	msg := fmt.Sprintf("Step %d failed: Element not found or assertion failed", failedStep)
	log.add(CategoryError, "%s", msg)

	return Outcome{Verdict: Failed, ErrorMessage: msg, Log: log.entries}
}

func (s *Simulator) pause(ctx context.Context) {
	if s.cfg.StepDelay <= 0 || ctx.Err() != nil {
		return
	}

	timer := time.NewTimer(s.cfg.StepDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// preview truncates a step to previewRunes runes.
func preview(step string) string {
	r := []rune(step)
	if len(r) <= previewRunes {
		return step
	}
	return string(r[:previewRunes]) + "..."
}
