package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/runstore"
)

func runsCmd(a *app) *cobra.Command {
	var (
		limit    int
		asCSV    bool
		runsPath string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Runs.Path
			if cmd.Flags().Changed("runs") {
				path = runsPath
			}
			if path == "" {
				return errors.New("no run ledger configured")
			}

			store, err := runstore.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asCSV {
				return runstore.WriteCSV(cmd.OutOrStdout(), runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tTRAINED AT\tTREES\tDEPTH\tLR\tACCURACY\tMACRO F1\tCLASSES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%g\t%.4f\t%.4f\t%s\n",
					r.ID, r.TrainedAt.Format("2006-01-02 15:04:05"),
					r.Hyperparameters.NEstimators, r.Hyperparameters.MaxDepth, r.Hyperparameters.LearningRate,
					r.Accuracy, r.MacroF1, strings.Join(r.Classes, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of a table")
	cmd.Flags().StringVar(&runsPath, "runs", "", "Run ledger database")

	return cmd
}
