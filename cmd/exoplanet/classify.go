package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/exoplanet/classify"
	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/serving"
	"github.com/YuminosukeSato/exoplanet/survey"
)

func classifyCmd(a *app) *cobra.Command {
	var (
		surveyName string
		threshold  float64
		output     string
		modelPath  string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "classify <table.csv>",
		Short: "Classify the candidates of a raw survey table",
		Long: `classify maps a raw Kepler, TESS or K2 table onto the unified features,
fills missing values with the table's own medians and writes one prediction
per row. Rows whose top-class probability is below the threshold are
labelled UNKNOWN.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("model") {
				cfg.Artifacts.ModelPath = modelPath
			}
			th := cfg.Inference.Threshold
			if strict {
				th = classify.StrictThreshold
			}
			if cmd.Flags().Changed("threshold") {
				th = threshold
			}
			if err := classify.ValidateThreshold(th); err != nil {
				return err
			}

			sv := serving.SurveyForFile(args[0], cfg.WatchSurvey())
			if surveyName != "" {
				parsed, err := survey.ParseSurvey(surveyName)
				if err != nil {
					return err
				}
				sv = parsed
			}

			reg := serving.NewRegistry(cfg.Artifacts.ModelPath)
			if err := reg.Load(); err != nil {
				return err
			}
			svc := serving.NewService(reg, cfg.Inference.IDColumns)

			if output != "" {
				batch, err := svc.ClassifyFile(cmd.Context(), args[0], output, sv, th)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d predictions (%d UNKNOWN) written to %s\n",
					len(batch.Predictions), batch.Abstained, output)
				return nil
			}

			table, _, err := dataset.LoadCSV(args[0])
			if err != nil {
				return err
			}
			batch, err := svc.Predict(cmd.Context(), table, sv, th)
			if err != nil {
				return err
			}
			return dataset.WritePredictionsCSV(cmd.OutOrStdout(), batch.IDColumns, batch.Predictions)
		},
	}

	cmd.Flags().StringVarP(&surveyName, "survey", "s", "", "Survey of the table (kepler, tess, k2); default from the file name")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", classify.DefaultThreshold, "Minimum top-class probability, in (0, 1]")
	cmd.Flags().BoolVar(&strict, "strict", false, fmt.Sprintf("Use the strict threshold %.1f", classify.StrictThreshold))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV path (default stdout)")
	cmd.Flags().StringVar(&modelPath, "model", "", "Artifact path")

	return cmd
}
