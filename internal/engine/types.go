// Package engine executes test case descriptors and produces verdicts.
//
// An execution either walks the parsed steps in a paced simulation, or asks a
// language-model provider to judge the test case and validates its reply.
// Any enumerated AI failure falls back to simulation, and no error or panic
// ever crosses Engine.Execute.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/verdict/internal/provider"
)

// Verdict is the binary outcome of an execution.
type Verdict string

const (
	Passed Verdict = "Passed"
	Failed Verdict = "Failed"
)

// Category tags a log entry.
type Category string

const (
	CategoryInfo    Category = "info"
	CategoryStep    Category = "step"
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
)

// LogEntry is one timestamped message in an execution log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Message   string    `json:"message" yaml:"message"`
	Type      Category  `json:"type" yaml:"type"`
}

// Priority is the test case priority tag.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority accepts any casing. Empty selects Medium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown priority %q (want Low, Medium or High)", s)
	}
}

// Descriptor is the test case handed to the engine. The engine never mutates it.
type Descriptor struct {
	// ID is the caller's identifier; the engine only passes it through
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Steps          string   `json:"steps" yaml:"steps"`
	ExpectedResult string   `json:"expected_result,omitempty" yaml:"expected_result,omitempty"`
	Priority       Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ExecutionConfig selects the execution strategy.
type ExecutionConfig struct {
	// Provider selects the AI provider; KindNone forces simulation
	Provider provider.Kind

	// Credential is the provider API key. Empty forces simulation.
	Credential string

	// Model overrides the provider default model
	Model string
}

// wantsAI reports whether the AI path should be attempted.
func (c ExecutionConfig) wantsAI() bool {
	return c.Provider != provider.KindNone && strings.TrimSpace(c.Credential) != ""
}

// Request is a single execution request.
type Request struct {
	Descriptor Descriptor

	// ExecutedBy identifies the caller; it is copied into the result untouched
	ExecutedBy string

	Config ExecutionConfig
}

// Mode records which strategy produced the final verdict.
type Mode string

const (
	ModeSimulation Mode = "simulation"
	ModeAI         Mode = "ai"
	ModeFallback   Mode = "fallback"
	ModeFault      Mode = "fault"
)

// Result is the outcome of one execution.
type Result struct {
	Verdict Verdict `json:"status" yaml:"status"`

	// ElapsedSeconds is wall-clock time rounded to two decimals
	ElapsedSeconds float64 `json:"execution_time" yaml:"execution_time"`

	// ErrorMessage is set iff Verdict is Failed
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	Log []LogEntry `json:"execution_log" yaml:"execution_log"`

	// AIUsed is true only when the AI path produced the final verdict
	AIUsed bool `json:"ai_used" yaml:"ai_used"`

	// Provider is the provider that produced the verdict; empty unless AIUsed
	Provider provider.Kind `json:"ai_provider,omitempty" yaml:"ai_provider,omitempty"`

	ExecutedBy string `json:"executed_by,omitempty" yaml:"executed_by,omitempty"`
	Mode       Mode   `json:"mode" yaml:"mode"`
}

// Outcome is what a single strategy produces before the engine wraps it.
type Outcome struct {
	Verdict      Verdict
	ErrorMessage string
	Log          []LogEntry
}

// logBuffer is an append-only execution log.
type logBuffer struct {
	entries []LogEntry
}

func (l *logBuffer) add(category Category, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.entries = append(l.entries, LogEntry{
		Timestamp: time.Now(),
		Message:   msg,
		Type:      category,
	})
}
