package cmd

import (
	"context"

	"github.com/spf13/cobra"

	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded executions",
		Long: `Inspect the execution records written by verdict run.

Records live in the store selected by history.driver (sqlite by default,
at .verdict/history.db).`,
	}

	cmd.AddCommand(newHistoryListCmd(a), newHistoryShowCmd(a))
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		caseID string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent executions, newest first",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.instrument("history.list", func(cmd *cobra.Command, _ []string) error {
		formatter, err := a.formatter(format)
		if err != nil {
			return err
		}

		return a.withStore(cmd.Context(), func(store history.Store) error {
			records, err := store.List(cmd.Context(), history.Filter{CaseID: caseID, Limit: limit})
			if err != nil {
				return err
			}
			return formatter.Format(historyListView{Records: records})
		})
	})

	flags := cmd.Flags()
	flags.StringVar(&caseID, "case", "", "only show executions of this test case id")
	flags.IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum number of records")
	flags.StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one execution with its full log",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.instrument("history.show", func(cmd *cobra.Command, args []string) error {
		formatter, err := a.formatter(format)
		if err != nil {
			return err
		}

		return a.withStore(cmd.Context(), func(store history.Store) error {
			record, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return formatter.Format(recordView(*record))
		})
	})

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	return cmd
}

// withStore opens the configured history store for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(history.Store) error) error {
	if !a.cfg.History.Enabled() {
		return verdicterrors.NewHistoryDisabledError()
	}

	store, err := history.Open(ctx, a.cfg.History.Driver, a.cfg.HistoryDSN(), history.WithMetrics(a.metrics))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			a.logger.Warn("Failed to close history store", "error", cerr)
		}
	}()

	return fn(store)
}
