package dataset

import (
	"io"
	"math"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// Output columns appended after the features and identifiers.
const (
	PredictedColumn  = "Predicted_Disposition"
	ConfidenceColumn = "Confidence"
)

// Prediction is one output row.
type Prediction struct {
	// IDs holds the identifier values aligned with the idColumns passed to the writer.
	IDs        []string
	Features   []float64
	Label      string
	Confidence float64
}

// PredictionHeader returns the CSV header for the given identifier columns.
func PredictionHeader(idColumns []string) []string {
	header := survey.FeatureNames()
	header = append(header, idColumns...)
	return append(header, PredictedColumn, ConfidenceColumn)
}

// WritePredictionsCSV writes features, identifiers, label and confidence of
// every prediction. Missing feature values are written as empty cells.
func WritePredictionsCSV(w io.Writer, idColumns []string, preds []Prediction) error {
	writer := gocsv.DefaultCSVWriter(w)
	if err := writer.Write(PredictionHeader(idColumns)); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	record := make([]string, 0, survey.NumFeatures+len(idColumns)+2)
	for i, p := range preds {
		if len(p.IDs) != len(idColumns) {
			return errors.NewDimensionError("WritePredictionsCSV", len(idColumns), len(p.IDs), 1)
		}
		record = record[:0]
		for _, v := range p.Features {
			record = append(record, formatFloat(v))
		}
		record = append(record, p.IDs...)
		record = append(record, p.Label, strconv.FormatFloat(p.Confidence, 'f', 6, 64))
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "failed to flush predictions")
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
