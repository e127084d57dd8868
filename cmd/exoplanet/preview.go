package main

import (
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/survey"
)

func previewCmd(a *app) *cobra.Command {
	var (
		limit      int
		surveyName string
	)

	cmd := &cobra.Command{
		Use:   "preview <table.csv>",
		Short: "Show a raw table without its empty rows and columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, stats, err := dataset.LoadCSV(args[0])
			if err != nil {
				return err
			}
			preview := dataset.Preview(table)

			w := gocsv.DefaultCSVWriter(cmd.OutOrStdout())
			if err := w.Write(preview.Columns()); err != nil {
				return err
			}
			for i := 0; i < preview.Len() && (limit <= 0 || i < limit); i++ {
				if err := w.Write(preview.Row(i)); err != nil {
					return err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			info := cmd.ErrOrStderr()
			fmt.Fprintf(info, "%d rows (%d skipped, %s), %d of %d columns non-empty\n",
				preview.Len(), stats.Skipped, stats.Encoding, len(preview.Columns()), len(table.Columns()))

			if surveyName == "" {
				return nil
			}
			sv, err := survey.ParseSurvey(surveyName)
			if err != nil {
				return err
			}
			for _, f := range survey.Features() {
				col := survey.ResolveColumn(table, sv, f)
				if col == "" {
					col = "(missing)"
				}
				fmt.Fprintf(info, "  %-15s <- %s\n", f, col)
			}
			if _, labelled := survey.NormalizeLabels(table, sv); !labelled {
				fmt.Fprintf(info, "  no %s column: rows are unlabelled\n", sv.DispositionColumn())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to print (0 for all)")
	cmd.Flags().StringVarP(&surveyName, "survey", "s", "", "Also show how the columns map onto the unified features")

	return cmd
}
