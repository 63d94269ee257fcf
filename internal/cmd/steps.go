package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/verdict/internal/casefile"
	"github.com/felixgeelhaar/verdict/internal/steps"
)

func newStepsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "steps FILE...",
		Short: "Show the steps the engine parses from each test case",
		Long: `Parse the steps text of every test case and print the resulting step list.

Numbering such as "1." or "2)" is stripped and blank lines are dropped,
exactly as the simulation and the AI prompt see them.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = a.instrument("steps", func(cmd *cobra.Command, args []string) error {
		formatter, err := a.formatter(format)
		if err != nil {
			return err
		}

		cases, err := casefile.LoadAll(casefile.NewFileRepository(), args)
		if err != nil {
			return err
		}

		view := stepsView{Cases: make([]stepsCase, 0, len(cases))}
		for _, d := range cases {
			view.Cases = append(view.Cases, stepsCase{
				ID:    d.ID,
				Title: d.Title,
				Steps: steps.Parse(d.Steps),
			})
		}

		return formatter.Format(view)
	})

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	return cmd
}
