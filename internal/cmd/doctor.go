package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/verdict/internal/health"
	"github.com/felixgeelhaar/verdict/internal/history"
	"github.com/felixgeelhaar/verdict/internal/provider"
)

func newDoctorCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check provider credentials and the history store",
		Long: `Check that each provider has a credential and that the history store opens.

A missing credential is reported as degraded: runs with that provider are
simulated. The command fails only when a check is unhealthy.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.instrument("doctor", func(cmd *cobra.Command, _ []string) error {
		formatter, err := a.formatter(format)
		if err != nil {
			return err
		}

		manager := health.NewManager()
		for _, kind := range provider.Builtin {
			manager.Add(health.NewCredentialChecker(kind, a.cfg.ProviderSettings(kind)))
		}

		var open health.StoreOpener
		if a.cfg.History.Enabled() {
			open = func(ctx context.Context) (history.Store, error) {
				return history.Open(ctx, a.cfg.History.Driver, a.cfg.HistoryDSN())
			}
		}
		manager.Add(health.NewHistoryChecker(a.cfg.History.Driver, open))

		reports := manager.Check(cmd.Context())
		view := doctorView{Status: health.Overall(reports), Checks: reports}
		if err := formatter.Format(view); err != nil {
			return err
		}

		if view.Status == health.StatusUnhealthy {
			return fmt.Errorf("doctor: %d check(s) unhealthy", countStatus(reports, health.StatusUnhealthy))
		}
		return nil
	})

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	return cmd
}

func countStatus(reports []health.Report, status health.Status) int {
	n := 0
	for _, r := range reports {
		if r.Result.Status == status {
			n++
		}
	}
	return n
}
