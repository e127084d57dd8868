package lightgbm

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
)

// LGBMClassifier implements a gradient boosted tree classifier with a
// scikit-learn compatible API. Every problem, binary included, is fit with
// the softmax objective and one tree per class per round.
type LGBMClassifier struct {
	model.BaseEstimator

	// Model
	Model *Model

	// Hyperparameters
	NumIterations   int     // Number of boosting iterations (n_estimators)
	MaxDepth        int     // Maximum tree depth
	LearningRate    float64 // Boosting learning rate
	MinChildWeight  float64 // Minimum sum of hessians in one leaf
	Subsample       float64 // Subsample ratio of training rows per round
	ColsampleBytree float64 // Subsample ratio of columns per tree
	RegLambda       float64 // L2 regularization
	MaxBin          int     // Maximum histogram bins per feature
	RandomState     uint64  // Random seed
	NumThreads      int     // Threads for split search and prediction (<=0: all cores)
	Verbosity       int     // Verbosity level

	// Classes holds the distinct y values seen during Fit, ascending.
	Classes []int
	// NFeatures is the number of features seen during Fit.
	NFeatures int
}

// NewLGBMClassifier creates a new classifier with default parameters
func NewLGBMClassifier() *LGBMClassifier {
	return &LGBMClassifier{
		NumIterations:   100,
		MaxDepth:        6,
		LearningRate:    0.1,
		MinChildWeight:  1.0,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		RegLambda:       1.0,
		MaxBin:          255,
		RandomState:     42,
		NumThreads:      -1,
		Verbosity:       -1,
	}
}

// WithNumIterations sets the number of iterations
func (lgb *LGBMClassifier) WithNumIterations(n int) *LGBMClassifier {
	lgb.NumIterations = n
	return lgb
}

// WithMaxDepth sets the maximum depth
func (lgb *LGBMClassifier) WithMaxDepth(d int) *LGBMClassifier {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMClassifier) WithLearningRate(lr float64) *LGBMClassifier {
	lgb.LearningRate = lr
	return lgb
}

// WithSubsample sets the row subsample ratio
func (lgb *LGBMClassifier) WithSubsample(r float64) *LGBMClassifier {
	lgb.Subsample = r
	return lgb
}

// WithColsampleBytree sets the per-tree column subsample ratio
func (lgb *LGBMClassifier) WithColsampleBytree(r float64) *LGBMClassifier {
	lgb.ColsampleBytree = r
	return lgb
}

// WithRandomState sets the random seed
func (lgb *LGBMClassifier) WithRandomState(seed uint64) *LGBMClassifier {
	lgb.RandomState = seed
	return lgb
}

// Fit trains the classifier. y is an n×1 matrix of integer class labels.
func (lgb *LGBMClassifier) Fit(X, y mat.Matrix) error {
	return lgb.FitWeighted(X, y, nil)
}

// FitWeighted trains the classifier with one weight per row.
// sampleWeight may be nil for unit weights.
func (lgb *LGBMClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) (err error) {
	defer scigoErrors.Recover(&err, "LGBMClassifier.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return scigoErrors.NewDimensionError("LGBMClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return scigoErrors.NewDimensionError("LGBMClassifier.Fit", 1, yCols, 1)
	}
	if sampleWeight != nil {
		if len(sampleWeight) != rows {
			return scigoErrors.NewDimensionError("LGBMClassifier.Fit", rows, len(sampleWeight), 0)
		}
		for _, w := range sampleWeight {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return scigoErrors.NewValidationError("sample_weight", "must be finite and non-negative", w)
			}
		}
	}

	classes, yIdx, err := encodeTargets(y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return scigoErrors.NewValueError("LGBMClassifier.Fit",
			fmt.Sprintf("need samples of at least 2 classes in the data, got %d", len(classes)))
	}

	logger := log.GetLoggerWithName("lightgbm.classifier")
	logger.Debug("Training LGBMClassifier",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ClassesKey, len(classes),
		log.NEstimatorsKey, lgb.NumIterations)

	params := TrainingParams{
		NumIterations:   lgb.NumIterations,
		LearningRate:    lgb.LearningRate,
		MaxDepth:        lgb.MaxDepth,
		Lambda:          lgb.RegLambda,
		MinChildWeight:  lgb.MinChildWeight,
		BaggingFraction: lgb.Subsample,
		FeatureFraction: lgb.ColsampleBytree,
		MaxBin:          lgb.MaxBin,
		NumClass:        len(classes),
		Seed:            lgb.RandomState,
		NumThreads:      lgb.NumThreads,
		Verbosity:       lgb.Verbosity,
	}

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, yIdx, sampleWeight); err != nil {
		return scigoErrors.Wrap(err, "training failed")
	}

	lgb.Model = trainer.GetModel()
	lgb.Classes = classes
	lgb.NFeatures = cols
	lgb.SetFitted()

	return nil
}

// encodeTargets maps y values to dense indices over their sorted distinct values.
func encodeTargets(y mat.Matrix) ([]int, []int, error) {
	rows, _ := y.Dims()
	seen := make(map[int]struct{})
	raw := make([]int, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) || math.IsNaN(v) {
			return nil, nil, scigoErrors.NewValueError("LGBMClassifier.Fit", fmt.Sprintf("non-integer class label %v at row %d", v, i))
		}
		raw[i] = int(v)
		seen[raw[i]] = struct{}{}
	}

	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	for i, v := range raw {
		raw[i] = index[v]
	}
	return classes, raw, nil
}

func (lgb *LGBMClassifier) predictor() *Predictor {
	p := NewPredictor(lgb.Model)
	if lgb.NumThreads > 0 {
		p.SetNumThreads(lgb.NumThreads)
	}
	return p
}

// PredictProba returns an n×NClasses matrix of class probabilities.
// Column j corresponds to Classes[j].
func (lgb *LGBMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lgb.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("LGBMClassifier", "PredictProba")
	}
	_, cols := X.Dims()
	if cols != lgb.NFeatures {
		return nil, scigoErrors.NewDimensionError("LGBMClassifier.PredictProba", lgb.NFeatures, cols, 1)
	}
	proba, err := lgb.predictor().PredictProba(X)
	if err != nil {
		return nil, err
	}
	return proba, nil
}

// Predict returns an n×1 matrix of predicted class labels.
func (lgb *LGBMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lgb.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("LGBMClassifier", "Predict")
	}
	_, cols := X.Dims()
	if cols != lgb.NFeatures {
		return nil, scigoErrors.NewDimensionError("LGBMClassifier.Predict", lgb.NFeatures, cols, 1)
	}
	idx, err := lgb.predictor().PredictClass(X)
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(len(idx), 1, nil)
	for i, c := range idx {
		out.Set(i, 0, float64(lgb.Classes[c]))
	}
	return out, nil
}

// NClasses returns the number of classes seen during fitting.
func (lgb *LGBMClassifier) NClasses() int {
	return len(lgb.Classes)
}

// FeatureImportances returns normalized gain importance per feature.
func (lgb *LGBMClassifier) FeatureImportances() ([]float64, error) {
	if !lgb.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("LGBMClassifier", "FeatureImportances")
	}
	return lgb.Model.GetFeatureImportance("gain"), nil
}

// GetParams returns the model's hyperparameters.
func (lgb *LGBMClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     lgb.NumIterations,
		"max_depth":        lgb.MaxDepth,
		"learning_rate":    lgb.LearningRate,
		"min_child_weight": lgb.MinChildWeight,
		"subsample":        lgb.Subsample,
		"colsample_bytree": lgb.ColsampleBytree,
		"reg_lambda":       lgb.RegLambda,
		"max_bin":          lgb.MaxBin,
		"random_state":     lgb.RandomState,
	}
}
