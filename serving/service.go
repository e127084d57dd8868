package serving

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/exoplanet/classify"
	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/sklearn/drift"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// DefaultIDColumns are carried into prediction output when present.
var DefaultIDColumns = []string{"kepoi_name", "id", "rowid"}

// Batch is the result of classifying one uploaded table.
type Batch struct {
	ArtifactID uuid.UUID
	Survey     survey.Survey
	// IDColumns are the configured identifier columns found in the upload.
	IDColumns   []string
	Predictions []dataset.Prediction
	Decisions   []classify.Decision
	Abstained   int
	// Drift is the abstention-rate monitor's verdict (Stable without a monitor).
	Drift drift.State
}

// Service classifies uploaded survey tables with the registry's current artifact.
type Service struct {
	registry  *Registry
	metrics   *Metrics
	monitor   *drift.DDM
	idColumns []string
	logger    log.Logger
}

// NewService creates a service. nil idColumns selects DefaultIDColumns.
func NewService(registry *Registry, idColumns []string) *Service {
	if idColumns == nil {
		idColumns = DefaultIDColumns
	}
	return &Service{
		registry:  registry,
		idColumns: append([]string(nil), idColumns...),
		logger:    log.GetLoggerWithName("serving.service"),
	}
}

// WithMetrics counts decisions on m.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// WithDriftMonitor feeds every decision's abstention into d.
func (s *Service) WithDriftMonitor(d *drift.DDM) *Service {
	s.monitor = d
	return s
}

// Predict maps table onto the unified features, fills each missing value
// with the median of that feature within the upload itself and classifies
// every row at threshold. Predictions carry the imputed feature values.
// The artifact is read once, so a concurrent Retrain never mixes two models
// inside one batch.
func (s *Service) Predict(ctx context.Context, table survey.Table, sv survey.Survey, threshold float64) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := classify.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	a := s.registry.Current()
	if a == nil {
		return nil, errors.NewNotFittedError("Registry", "Predict")
	}

	start := time.Now()
	frame := survey.MapFeatures(table, sv)
	dataset.ImputeMedian(frame)

	decisions, err := classify.ClassifyFrame(a.Pipeline, a.Codec, frame, threshold)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	s.metrics.ObserveDecisions(decisions, elapsed)

	ids := presentColumns(table, s.idColumns)
	preds := make([]dataset.Prediction, len(decisions))
	for i, d := range decisions {
		p := dataset.Prediction{
			IDs:        make([]string, len(ids)),
			Features:   frame.Row(i),
			Label:      d.Label.String(),
			Confidence: d.Confidence,
		}
		for j, col := range ids {
			p.IDs[j], _ = table.Cell(col, i)
		}
		preds[i] = p
	}

	batch := &Batch{
		ArtifactID:  a.ID,
		Survey:      sv,
		IDColumns:   ids,
		Predictions: preds,
		Decisions:   decisions,
		Abstained:   classify.CountAbstained(decisions),
	}
	batch.Drift = s.observeDrift(decisions)

	s.logger.Info("Classified table",
		log.OperationKey, log.OperationClassify,
		log.SurveyKey, sv.String(),
		log.EstimatorIDKey, a.ID.String(),
		log.PredsKey, len(decisions),
		log.AbstainedKey, batch.Abstained,
		log.ThresholdKey, threshold,
		log.DurationMsKey, elapsed.Milliseconds())
	return batch, nil
}

func (s *Service) observeDrift(decisions []classify.Decision) drift.State {
	if s.monitor == nil {
		return drift.Stable
	}
	events := make([]bool, len(decisions))
	for i, d := range decisions {
		events[i] = d.Abstained()
	}
	r := s.monitor.Observe(events)
	s.metrics.ObserveDrift(r.State)
	if r.State == drift.Drift {
		s.logger.Warn("Abstention rate drifted, the model may need retraining",
			"abstention_rate", r.Rate,
			"reference_rate", r.MinRate)
	}
	return r.State
}

// ClassifyFile loads a raw CSV, classifies it and writes the predictions CSV
// to outPath. The output appears atomically.
func (s *Service) ClassifyFile(ctx context.Context, inPath, outPath string, sv survey.Survey, threshold float64) (*Batch, error) {
	table, _, err := dataset.LoadCSV(inPath)
	if err != nil {
		return nil, err
	}
	batch, err := s.Predict(ctx, table, sv, threshold)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to classify %s", inPath)
	}
	if err := writeBatch(outPath, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func writeBatch(path string, batch *Batch) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	tmp, err := os.CreateTemp(dir, ".predictions-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := dataset.WritePredictionsCSV(tmp, batch.IDColumns, batch.Predictions); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to move predictions into place")
	}
	return nil
}

func presentColumns(table survey.Table, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if table.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}
