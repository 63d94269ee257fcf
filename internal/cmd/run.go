package cmd

import (
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/verdict/internal/casefile"
	"github.com/felixgeelhaar/verdict/internal/engine"
	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/history"
	"github.com/felixgeelhaar/verdict/internal/metrics"
	"github.com/felixgeelhaar/verdict/internal/progress"
	"github.com/felixgeelhaar/verdict/internal/provider"
	"github.com/felixgeelhaar/verdict/internal/runner"
)

type runOptions struct {
	provider    string
	model       string
	executedBy  string
	format      string
	noRecord    bool
	requireKey  bool
	concurrency int
	timeout     time.Duration
	metricsFile string
	progress    bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Execute test cases and print their verdicts",
		Long: `Execute every test case in the given YAML or JSON files.

Without a provider, or without a credential for it, each case is simulated.
With both, the provider judges the case; any provider failure falls back to
simulation and is noted in the execution log.

The command exits with code 3 when any case fails.`,
		Example: `  # Simulate every case in a file
  verdict run cases/login.yaml

  # Ask OpenAI to judge, reading OPENAI_API_KEY from the environment or .env
  verdict run --provider openai cases/*.yaml

  # Machine-readable output without touching history
  verdict run --format json --no-record cases/login.yaml`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = a.instrument("run", func(cmd *cobra.Command, args []string) error {
		return a.runCases(cmd, args, opts)
	})

	flags := cmd.Flags()
	flags.StringVarP(&opts.provider, "provider", "p", "", "AI provider: openai, anthropic, gemini or none (default from config)")
	flags.StringVarP(&opts.model, "model", "m", "", "model override for the selected provider")
	flags.StringVar(&opts.executedBy, "executed-by", "", "name recorded as the executor (default is the current user)")
	flags.StringVarP(&opts.format, "format", "f", "text", "output format: text, json or yaml")
	flags.BoolVar(&opts.noRecord, "no-record", false, "do not write execution history")
	flags.BoolVar(&opts.requireKey, "require-credential", false, "fail instead of simulating when the provider has no credential")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 0, "cases executed in parallel (default from config)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-case execution timeout (default from config)")
	flags.BoolVar(&opts.progress, "progress", false, "draw a progress bar on stderr while cases run")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")

	return cmd
}

func (a *app) runCases(cmd *cobra.Command, paths []string, opts *runOptions) error {
	ctx := cmd.Context()

	formatter, err := a.formatter(opts.format)
	if err != nil {
		return err
	}

	cases, err := casefile.LoadAll(casefile.NewFileRepository(), paths)
	if err != nil {
		return err
	}

	execCfg, err := a.executionConfig(opts)
	if err != nil {
		return err
	}

	registry, err := provider.NewDefaultRegistry(a.cfg.Providers, nil)
	if err != nil {
		return verdicterrors.NewConfigInvalidError("provider settings", err)
	}

	eng := engine.New(
		engine.WithRegistry(registry),
		engine.WithSimulator(engine.NewSimulator(a.cfg.Simulation)),
		engine.WithLogger(a.logger),
		engine.WithMetrics(a.metrics),
	)

	runnerOpts := []runner.Option{
		runner.WithConcurrency(firstPositive(opts.concurrency, a.cfg.Concurrency)),
		runner.WithTimeout(firstDuration(opts.timeout, a.cfg.Execution.Timeout)),
		runner.WithLogger(a.logger),
	}

	if !opts.noRecord && a.cfg.History.Enabled() {
		store, err := history.Open(ctx, a.cfg.History.Driver, a.cfg.HistoryDSN(), history.WithMetrics(a.metrics))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				a.logger.Warn("Failed to close history store", "error", cerr)
			}
		}()
		runnerOpts = append(runnerOpts, runner.WithStore(store))
	}

	var bar *progress.Bar
	if opts.progress {
		bar = progress.NewBar(a.stderr, len(cases))
		runnerOpts = append(runnerOpts, runner.WithProgress(func(rep runner.Report) {
			bar.Add(rep.Result.Verdict == engine.Passed)
		}))
	}

	executedBy := opts.executedBy
	if executedBy == "" {
		executedBy = currentUser()
	}

	reports, runErr := runner.New(eng, runnerOpts...).Run(ctx, runner.Batch{
		Cases:      cases,
		Config:     execCfg,
		ExecutedBy: executedBy,
	})
	if bar != nil {
		bar.Finish()
	}
	summary := runner.Summarize(reports)

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile, a.registry); err != nil {
			a.logger.Warn("Failed to write metrics textfile", "path", opts.metricsFile, "error", err)
		}
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return verdicterrors.Wrap(verdicterrors.ErrCodeRunCanceled, "run canceled", ctx.Err())
		}
		if verdicterrors.CodeOf(runErr) != "" {
			return runErr
		}
		return verdicterrors.NewHistoryWriteError(runErr)
	}

	if err := formatter.Format(runView{Reports: reports, Summary: summary}); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return verdicterrors.NewTestsFailedError(summary.Failed, summary.Total)
	}
	return nil
}

// executionConfig resolves the provider, credential and model for a run.
func (a *app) executionConfig(opts *runOptions) (engine.ExecutionConfig, error) {
	name := firstNonEmpty(opts.provider, a.cfg.Execution.Provider)

	kind, err := provider.ParseKind(name)
	if err != nil {
		known := make([]string, 0, len(provider.Builtin))
		for _, k := range provider.Builtin {
			known = append(known, k.String())
		}
		return engine.ExecutionConfig{}, verdicterrors.NewProviderNotFoundError(name, known)
	}
	if kind == provider.KindNone {
		return engine.ExecutionConfig{}, nil
	}

	settings := a.cfg.ProviderSettings(kind)
	credential := settings.Credential()
	if credential == "" {
		if opts.requireKey {
			return engine.ExecutionConfig{}, verdicterrors.NewProviderCredentialMissingError(kind.String(), settings.APIKeyEnv)
		}
		a.logger.Warn("No credential for provider, running in simulation mode",
			"provider", kind.String(),
			"env", settings.APIKeyEnv,
		)
	}

	return engine.ExecutionConfig{
		Provider:   kind,
		Credential: credential,
		Model:      firstNonEmpty(opts.model, a.cfg.Execution.Model),
	}, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 1
}

func firstDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
