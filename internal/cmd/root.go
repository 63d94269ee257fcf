package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/verdict/internal/config"
	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/log"
	"github.com/felixgeelhaar/verdict/internal/metrics"
	"github.com/felixgeelhaar/verdict/internal/telemetry"
	"github.com/felixgeelhaar/verdict/internal/ux"
)

// app carries the state shared by every command of one invocation.
type app struct {
	// Global flags
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg      *config.Config
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	stdout io.Writer
	stderr io.Writer

	cleanup func()
}

// NewRootCommand builds the verdict command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newApp() *app {
	return &app{stdout: os.Stdout, stderr: os.Stderr}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "verdict",
		Short: "Test case execution engine",
		Long: `verdict executes manual test case descriptions and returns a Passed or Failed verdict
with a structured execution log.

Each case is either simulated step by step or sent to an AI provider (OpenAI,
Anthropic or Gemini) for validation. Provider failures fall back to simulation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default is .verdict/config.yaml, searched up to the git root)")
	flags.StringVar(&a.envFile, "env-file", "", "env file with provider credentials (default is .env when present)")
	flags.StringVar(&a.logLevel, "log-level", "", "operator log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "operator log format: text or json")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCmd(a),
		newStepsCmd(a),
		newHistoryCmd(a),
		newProviderCmd(a),
		newDoctorCmd(a),
		newVersionCmd(a),
	)

	return root
}

// ExecuteContext runs the command tree with ctx, which cancels in-flight executions.
func ExecuteContext(ctx context.Context) error {
	a := newApp()
	// PersistentPostRun is skipped when a command fails
	defer a.close()

	return newRootCommand(a).ExecuteContext(ctx)
}

// setup loads the env file and config, then starts logging, metrics and tracing.
func (a *app) setup(cmd *cobra.Command) error {
	envFile, explicitEnv := a.envFile, a.envFile != ""
	if !explicitEnv {
		envFile = config.DefaultEnvFile
	}
	if err := config.LoadEnvFile(envFile, explicitEnv); err != nil {
		return err
	}

	configPath, explicit := a.configPath, a.configPath != ""
	if !explicit {
		if discovered, found, err := ux.DiscoverConfigFile("config.yaml"); err == nil && found {
			configPath = discovered
		} else {
			configPath = config.DefaultPath
		}
	}

	cfg, err := config.Load(configPath, explicit)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.cleanup = setupObservability(cmd.Context(), a)
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// instrument wraps a RunE with a command span and command metrics.
func (a *app) instrument(name string, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, span := telemetry.StartCommandSpan(cmd.Context(), name)
		defer span.End()
		cmd.SetContext(ctx)

		start := time.Now()
		err := run(cmd, args)

		code := ""
		if err != nil {
			code = string(verdicterrors.CodeOf(err))
			if code == "" {
				code = "UNCODED"
			}
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		a.metrics.RecordCommand(name, time.Since(start), code)

		return err
	}
}

// formatter builds the output formatter for --format.
func (a *app) formatter(format string) (ux.Formatter, error) {
	f, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: a.stdout, NoColor: a.noColor})
	if err != nil {
		return nil, ux.EnhanceError(err)
	}
	return f, nil
}
