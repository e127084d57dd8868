// Package dataset builds the cross-survey training table and handles the
// tabular files the pipeline reads and writes.
package dataset

import (
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// Source is one raw survey table to merge.
type Source struct {
	Table  survey.Table
	Survey survey.Survey
	// Name is used in logs and summaries, typically the file path.
	Name string
}

// SourceSummary describes what Merge did with one source.
type SourceSummary struct {
	Name            string
	Survey          survey.Survey
	Labelled        bool
	RowsRead        int
	RowsKept        int
	UnknownDropped  int
	Medians         []float64
	MissingFeatures []string
}

// TrainingTable is the merged, imputed, UNKNOWN-free training data.
// Features, Labels and Origins are row aligned.
type TrainingTable struct {
	Features *survey.Frame
	Labels   []survey.Label
	Origins  []survey.Survey
	Summary  []SourceSummary
}

// Len returns the number of rows.
func (t *TrainingTable) Len() int {
	return len(t.Labels)
}

// ImputeMedian replaces NaNs of each feature column with the median of the
// column's non-missing values, in place. It returns the medians used; a column
// without any value keeps its NaNs and reports a NaN median.
func ImputeMedian(frame *survey.Frame) []float64 {
	medians := make([]float64, survey.NumFeatures)
	for _, f := range survey.Features() {
		col := frame.Column(f)
		medians[f] = preprocessing.Median(col)
		preprocessing.FillNaN(col, medians[f])
	}
	return medians
}

// Merge maps, labels and imputes every source, concatenates them and drops
// UNKNOWN rows.
//
// Imputation uses each source's own medians before concatenation. Sources
// without a disposition column are skipped. When no source is labelled the
// result is an empty table, not an error.
func Merge(sources []Source) (*TrainingTable, error) {
	if len(sources) == 0 {
		return nil, errors.NewValidationError("sources", "at least one source is required", 0)
	}

	logger := log.GetLoggerWithName("dataset.merge")

	merged := survey.NewFrame(0)
	var labels []survey.Label
	var origins []survey.Survey
	summaries := make([]SourceSummary, 0, len(sources))

	for _, src := range sources {
		if src.Table == nil {
			return nil, errors.NewValidationError("sources", "source table is nil", src.Name)
		}
		features := survey.MapFeatures(src.Table, src.Survey)
		summary := SourceSummary{
			Name:     src.Name,
			Survey:   src.Survey,
			RowsRead: features.Len(),
		}
		for _, f := range survey.MissingFeatures(src.Table, src.Survey) {
			summary.MissingFeatures = append(summary.MissingFeatures, f.String())
		}

		srcLabels, ok := survey.NormalizeLabels(src.Table, src.Survey)
		if !ok {
			logger.Info("Source has no disposition column, skipped for training",
				log.SurveyKey, src.Survey.String(),
				log.SourcePathKey, src.Name,
				log.SurveyRowsKey, features.Len())
			summaries = append(summaries, summary)
			continue
		}
		summary.Labelled = true
		summary.Medians = ImputeMedian(features)

		// UNKNOWN 行を除外（特徴量とラベルの行数は常に一致）
		keep := make([]int, 0, len(srcLabels))
		for i, l := range srcLabels {
			if l.IsKnown() {
				keep = append(keep, i)
			}
		}
		summary.RowsKept = len(keep)
		summary.UnknownDropped = len(srcLabels) - len(keep)

		merged.Append(features.Select(keep))
		for _, i := range keep {
			labels = append(labels, srcLabels[i])
			origins = append(origins, src.Survey)
		}

		logger.Info("Source merged",
			log.SurveyKey, src.Survey.String(),
			log.SourcePathKey, src.Name,
			log.SurveyRowsKey, summary.RowsRead,
			log.SurveyUnknownDroppedKey, summary.UnknownDropped,
			log.SurveyLabelledKey, true)
		summaries = append(summaries, summary)
	}

	if merged.Len() != len(labels) {
		return nil, errors.Newf("merged table is misaligned: %d feature rows, %d labels", merged.Len(), len(labels))
	}

	logger.Info("Training table built",
		log.OperationKey, log.OperationMerge,
		log.SamplesKey, merged.Len(),
		log.FeaturesKey, survey.NumFeatures)

	return &TrainingTable{
		Features: merged,
		Labels:   labels,
		Origins:  origins,
		Summary:  summaries,
	}, nil
}
