// Package history persists execution records so past runs can be listed and inspected.
//
// The engine itself is stateless; callers create a record before executing a case
// and complete it with the result.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/verdict/internal/engine"
)

// Status is the lifecycle state of an execution record.
type Status string

const (
	StatusPending Status = "Pending"
	StatusRunning Status = "Running"
	StatusPassed  Status = "Passed"
	StatusFailed  Status = "Failed"
)

// Done reports whether the status is final.
func (s Status) Done() bool {
	return s == StatusPassed || s == StatusFailed
}

// Record is one execution of one test case.
type Record struct {
	ID          string `json:"id" yaml:"id"`
	CaseID      string `json:"case_id" yaml:"case_id"`
	Title       string `json:"title" yaml:"title"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	ExecutedBy  string `json:"executed_by,omitempty" yaml:"executed_by,omitempty"`
	Status      Status `json:"status" yaml:"status"`

	ExecutionTime float64           `json:"execution_time" yaml:"execution_time"`
	ErrorMessage  string            `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Log           []engine.LogEntry `json:"execution_log" yaml:"execution_log"`
	AIUsed        bool              `json:"ai_used" yaml:"ai_used"`
	AIProvider    string            `json:"ai_provider,omitempty" yaml:"ai_provider,omitempty"`
	Mode          engine.Mode       `json:"mode,omitempty" yaml:"mode,omitempty"`

	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// NewRecord starts a Running record for a descriptor.
func NewRecord(d engine.Descriptor, executedBy, fingerprint string, now time.Time) *Record {
	return &Record{
		ID:          uuid.NewString(),
		CaseID:      d.ID,
		Title:       d.Title,
		Fingerprint: fingerprint,
		ExecutedBy:  executedBy,
		Status:      StatusRunning,
		StartedAt:   now.UTC(),
	}
}

// Apply copies an engine result into the record and marks it complete.
func (r *Record) Apply(res engine.Result, now time.Time) {
	completed := now.UTC()

	r.Status = StatusFailed
	if res.Verdict == engine.Passed {
		r.Status = StatusPassed
	}
	r.ExecutionTime = res.ElapsedSeconds
	r.ErrorMessage = res.ErrorMessage
	r.Log = res.Log
	r.AIUsed = res.AIUsed
	r.AIProvider = string(res.Provider)
	r.Mode = res.Mode
	r.CompletedAt = &completed
}

// Filter narrows List results.
type Filter struct {
	// CaseID keeps only records of this test case when set
	CaseID string

	// Limit caps the number of records; zero means DefaultListLimit
	Limit int
}

// DefaultListLimit is the List page size when Filter.Limit is zero.
const DefaultListLimit = 50
