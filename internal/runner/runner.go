// Package runner executes batches of test cases with bounded concurrency and
// records each execution in the history store.
package runner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/verdict/internal/casefile"
	"github.com/felixgeelhaar/verdict/internal/engine"
	"github.com/felixgeelhaar/verdict/internal/history"
	"github.com/felixgeelhaar/verdict/internal/log"
)

// Executor runs a single execution request.
type Executor interface {
	Execute(ctx context.Context, req engine.Request) engine.Result
}

// Report is the outcome of one job.
type Report struct {
	Descriptor engine.Descriptor `json:"test_case" yaml:"test_case"`
	Result     engine.Result     `json:"result" yaml:"result"`

	// RecordID is the history record id; empty when no store is configured
	RecordID string `json:"record_id,omitempty" yaml:"record_id,omitempty"`
}

// Batch describes what to run.
type Batch struct {
	Cases      []engine.Descriptor
	Config     engine.ExecutionConfig
	ExecutedBy string
}

// Runner fans a batch out over the engine.
type Runner struct {
	executor    Executor
	store       history.Store
	logger      *log.Logger
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	onReport    func(Report)
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore records every execution in s.
func WithStore(s history.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithConcurrency bounds the number of executions in flight. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = n }
}

// WithTimeout bounds each execution. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the operator logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithProgress calls fn after each job completes. fn may be called concurrently.
func WithProgress(fn func(Report)) Option {
	return func(r *Runner) { r.onReport = fn }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner over executor.
func New(executor Executor, opts ...Option) *Runner {
	r := &Runner{
		executor:    executor,
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.logger == nil {
		r.logger = log.DefaultLogger()
	}
	return r
}

// Run executes every case and returns the reports in input order.
//
// Engine outcomes never fail the batch. A history store error stops scheduling
// new jobs and is returned with the reports completed so far; unfinished slots
// are left zero.
func (r *Runner) Run(ctx context.Context, b Batch) ([]Report, error) {
	reports := make([]Report, len(b.Cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, d := range b.Cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report, err := r.runOne(gctx, d, b)
			if err != nil {
				return err
			}
			reports[i] = report
			if r.onReport != nil {
				r.onReport(report)
			}
			return nil
		})
	}

	err := g.Wait()
	return reports, err
}

func (r *Runner) runOne(ctx context.Context, d engine.Descriptor, b Batch) (Report, error) {
	var rec *history.Record

	if r.store != nil {
		fingerprint, err := casefile.Fingerprint(d)
		if err != nil {
			return Report{}, err
		}
		rec = history.NewRecord(d, b.ExecutedBy, fingerprint, r.now())
		if err := r.store.Create(ctx, rec); err != nil {
			return Report{}, err
		}
	}

	execCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res := r.executor.Execute(execCtx, engine.Request{
		Descriptor: d,
		ExecutedBy: b.ExecutedBy,
		Config:     b.Config,
	})

	r.logger.Debug("test case executed",
		"test_case", d.ID,
		"verdict", string(res.Verdict),
		"mode", string(res.Mode),
		"elapsed_seconds", res.ElapsedSeconds,
	)

	report := Report{Descriptor: d, Result: res}
	if rec == nil {
		return report, nil
	}

	rec.Apply(res, r.now())
	// The batch context may already be canceled; the record still needs its final state.
	if err := r.store.Complete(context.WithoutCancel(ctx), rec); err != nil {
		return Report{}, err
	}
	report.RecordID = rec.ID

	return report, nil
}

// Summary totals a batch.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Passed    int `json:"passed" yaml:"passed"`
	Failed    int `json:"failed" yaml:"failed"`
	AIUsed    int `json:"ai_used" yaml:"ai_used"`
	Fallbacks int `json:"fallbacks" yaml:"fallbacks"`
}

// Summarize counts verdicts and modes. Zero reports are skipped.
func Summarize(reports []Report) Summary {
	var s Summary
	for _, rep := range reports {
		switch rep.Result.Verdict {
		case engine.Passed:
			s.Passed++
		case engine.Failed:
			s.Failed++
		default:
			continue
		}
		s.Total++
		if rep.Result.AIUsed {
			s.AIUsed++
		}
		if rep.Result.Mode == engine.ModeFallback {
			s.Fallbacks++
		}
	}
	return s
}
