package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/exoplanet/config"
	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/metrics"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/runstore"
	"github.com/YuminosukeSato/exoplanet/serving"
	"github.com/YuminosukeSato/exoplanet/survey"
	"github.com/YuminosukeSato/exoplanet/training"
)

func trainCmd(a *app) *cobra.Command {
	var (
		datasets     []string
		modelPath    string
		runsPath     string
		plotPath     string
		nEstimators  int
		maxDepth     int
		learningRate float64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Merge the survey tables, train the classifier and save the artifact",
		Example: `  exoplanet train
  exoplanet train --dataset kepler=data/koi.csv --dataset tess=data/toi.csv --n-estimators 300`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("dataset") {
				parsed, err := parseDatasetFlags(datasets)
				if err != nil {
					return err
				}
				cfg.Datasets = parsed
			}
			if cmd.Flags().Changed("model") {
				cfg.Artifacts.ModelPath = modelPath
			}
			if cmd.Flags().Changed("runs") {
				cfg.Runs.Path = runsPath
			}
			if cmd.Flags().Changed("report-plot") {
				cfg.Artifacts.ReportPlot = plotPath
			}
			if cmd.Flags().Changed("n-estimators") {
				cfg.Training.NEstimators = nEstimators
			}
			if cmd.Flags().Changed("max-depth") {
				cfg.Training.MaxDepth = maxDepth
			}
			if cmd.Flags().Changed("learning-rate") {
				cfg.Training.LearningRate = learningRate
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			sources, err := loadSources(cfg)
			if err != nil {
				return err
			}

			reg := serving.NewRegistry(cfg.Artifacts.ModelPath)
			if cfg.Runs.Path != "" {
				store, err := runstore.Open(cfg.Runs.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				reg.WithRunStore(store)
			}

			res, err := reg.Retrain(cmd.Context(), sources, cfg.Training)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "artifact %s written to %s\n", res.Artifact.ID, cfg.Artifacts.ModelPath)
			fmt.Fprintf(out, "hyperparameters: %s\n", cfg.Training)
			fmt.Fprintf(out, "classes: %s\n", strings.Join(res.Classes, ", "))
			fmt.Fprintf(out, "train rows: %d, test rows: %d\n\n", res.Result.TrainSize, res.Result.TestSize)
			fmt.Fprintln(out, res.Result.Report.String())

			importances, err := res.Artifact.FeatureImportances()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "feature importance (gain):")
			for _, fi := range importances {
				fmt.Fprintf(out, "  %-15s %.4f\n", fi.Feature, fi.Gain)
			}

			if cfg.Artifacts.ReportPlot != "" {
				if err := metrics.PlotReport(res.Result.Report, cfg.Artifacts.ReportPlot); err != nil {
					return err
				}
				fmt.Fprintf(out, "per-class F1 chart written to %s\n", cfg.Artifacts.ReportPlot)
			}
			return nil
		},
	}

	hp := training.DefaultHyperparameters()
	cmd.Flags().StringArrayVar(&datasets, "dataset", nil, "Training table as survey=path (repeatable, replaces the configured datasets)")
	cmd.Flags().StringVar(&modelPath, "model", "", "Artifact output path")
	cmd.Flags().StringVar(&runsPath, "runs", "", "Run ledger database (empty string disables)")
	cmd.Flags().StringVar(&plotPath, "report-plot", "", "Write a per-class F1 bar chart (.png, .svg, .pdf)")
	cmd.Flags().IntVar(&nEstimators, "n-estimators", hp.NEstimators, "Number of boosting rounds")
	cmd.Flags().IntVar(&maxDepth, "max-depth", hp.MaxDepth, "Maximum tree depth")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", hp.LearningRate, "Boosting learning rate")

	return cmd
}

// parseDatasetFlags parses survey=path pairs.
func parseDatasetFlags(values []string) ([]config.DatasetConfig, error) {
	out := make([]config.DatasetConfig, 0, len(values))
	for _, v := range values {
		name, path, ok := strings.Cut(v, "=")
		if !ok || path == "" {
			return nil, errors.Newf("invalid --dataset %q: expected survey=path", v)
		}
		if _, err := survey.ParseSurvey(name); err != nil {
			return nil, err
		}
		out = append(out, config.DatasetConfig{Path: path, Survey: name})
	}
	return out, nil
}

// loadSources reads every configured training table.
func loadSources(cfg *config.Config) ([]dataset.Source, error) {
	entries, err := cfg.Sources()
	if err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("cmd.train")

	sources := make([]dataset.Source, 0, len(entries))
	for _, e := range entries {
		table, stats, err := dataset.LoadCSV(e.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded survey table",
			log.SourcePathKey, e.Path,
			log.SurveyKey, e.Survey.String(),
			log.SurveyRowsKey, table.Len(),
			log.SkippedLinesKey, stats.Skipped,
			log.EncodingKey, stats.Encoding)
		sources = append(sources, dataset.Source{Table: table, Survey: e.Survey, Name: e.Path})
	}
	return sources, nil
}
