package training

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/metrics"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/sklearn/lightgbm"
	"github.com/YuminosukeSato/exoplanet/sklearn/model_selection"
	"github.com/YuminosukeSato/exoplanet/sklearn/pipeline"
	"github.com/YuminosukeSato/exoplanet/sklearn/utils"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// Result is the outcome of one training run.
type Result struct {
	Pipeline        *pipeline.Pipeline
	Codec           *preprocessing.LabelEncoder
	Report          *metrics.ClassificationReport
	Hyperparameters Hyperparameters
	TrainSize       int
	TestSize        int
	Duration        time.Duration
}

// NewPipeline builds the unfitted StandardScaler → LGBMClassifier pipeline.
func NewPipeline(hp Hyperparameters) *pipeline.Pipeline {
	clf := lightgbm.NewLGBMClassifier().
		WithNumIterations(hp.NEstimators).
		WithMaxDepth(hp.MaxDepth).
		WithLearningRate(hp.LearningRate).
		WithSubsample(Subsample).
		WithColsampleBytree(ColsampleBytree).
		WithRandomState(RandomSeed)
	return pipeline.New(preprocessing.NewStandardScalerDefault(), clf)
}

// Train fits a new pipeline and label codec on table.
//
// The codec maps the sorted distinct labels to 0..k-1. Fewer than two
// classes is an InsufficientClassesError. The data is split 80/20 with
// stratification; the scaler and classifier see the training partition only,
// with balanced per-row sample weights, and the report is computed on the
// test partition. Every call builds its own pipeline and shares no state.
func Train(table *dataset.TrainingTable, hp Hyperparameters) (result *Result, err error) {
	defer errors.Recover(&err, "training.Train")

	if err := hp.Validate(); err != nil {
		return nil, err
	}
	if table == nil || table.Len() == 0 {
		return nil, errors.NewInsufficientClassesError(nil)
	}
	if table.Features.Len() != table.Len() {
		return nil, errors.NewDimensionError("training.Train", table.Len(), table.Features.Len(), 0)
	}

	for i, l := range table.Labels {
		if !l.IsKnown() {
			return nil, errors.NewValueError("training.Train", fmt.Sprintf("row %d is labelled %q; drop UNKNOWN rows before training", i, l))
		}
	}

	start := time.Now()
	logger := log.GetLoggerWithName("training")

	codec := preprocessing.NewLabelEncoder()
	y, err := codec.FitTransform(survey.LabelStrings(table.Labels))
	if err != nil {
		return nil, err
	}
	if codec.NClasses() < 2 {
		return nil, errors.NewInsufficientClassesError(codec.Classes)
	}

	X, err := table.Features.Dense()
	if err != nil {
		return nil, err
	}

	split, err := model_selection.TrainTestSplit(y, TestFraction, RandomSeed)
	if err != nil {
		return nil, errors.Wrap(err, "stratified split failed")
	}
	XTrain, yTrain := takeRows(X, y, split.TrainIndices)
	XTest, yTest := takeRows(X, y, split.TestIndices)

	weights, err := utils.ComputeSampleWeight(yTrain, codec.NClasses())
	if err != nil {
		return nil, err
	}

	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(y),
		log.ClassesKey, codec.NClasses(),
		log.NEstimatorsKey, hp.NEstimators,
		log.MaxDepthKey, hp.MaxDepth,
		log.LearningRateKey, hp.LearningRate,
		log.RandomSeedKey, RandomSeed)

	p := NewPipeline(hp)
	if err := p.FitWeighted(XTrain, labelMatrix(yTrain), weights); err != nil {
		return nil, err
	}

	pred, err := p.Predict(XTest)
	if err != nil {
		return nil, err
	}
	yPred := make([]int, len(yTest))
	for i := range yPred {
		yPred[i] = int(pred.At(i, 0))
	}
	report, err := metrics.NewClassificationReport(yTest, yPred, codec.Classes)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	logger.Info("Training completed",
		log.PhaseKey, log.PhaseTesting,
		log.DurationMsKey, duration.Milliseconds(),
		log.AccuracyKey, report.Accuracy,
		log.MacroF1Key, report.MacroAvg.F1,
		"report", report)

	return &Result{
		Pipeline:        p,
		Codec:           codec,
		Report:          report,
		Hyperparameters: hp,
		TrainSize:       len(yTrain),
		TestSize:        len(yTest),
		Duration:        duration,
	}, nil
}

// takeRows copies the given rows of X and y.
func takeRows(X *mat.Dense, y []int, indices []int) (*mat.Dense, []int) {
	_, cols := X.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	labels := make([]int, len(indices))
	for k, i := range indices {
		out.SetRow(k, X.RawRowView(i))
		labels[k] = y[i]
	}
	return out, labels
}

func labelMatrix(y []int) *mat.Dense {
	data := make([]float64, len(y))
	for i, v := range y {
		data[i] = float64(v)
	}
	return mat.NewDense(len(y), 1, data)
}
