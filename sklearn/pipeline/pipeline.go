// Package pipeline chains a feature scaler and a probabilistic classifier,
// in the manner of sklearn.pipeline.Pipeline.
package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/sklearn/lightgbm"
)

// Pipeline is StandardScaler → LGBMClassifier.
//
// The scaler only sees the rows passed to Fit, so fitting on a training
// partition never leaks test statistics. After Fit the pipeline is read-only
// and PredictProba is safe for concurrent use.
type Pipeline struct {
	model.BaseEstimator

	Scaler     *preprocessing.StandardScaler
	Classifier *lightgbm.LGBMClassifier
}

// New creates a pipeline from its two steps.
func New(scaler *preprocessing.StandardScaler, clf *lightgbm.LGBMClassifier) *Pipeline {
	return &Pipeline{
		Scaler:     scaler,
		Classifier: clf,
	}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	return []string{"scaler", "classifier"}
}

// Fit fits both steps with unit sample weights.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	return p.FitWeighted(X, y, nil)
}

// FitWeighted fits the scaler on X, then the classifier on the scaled X with
// the given sample weights.
func (p *Pipeline) FitWeighted(X, y mat.Matrix, sampleWeight []float64) (err error) {
	defer scigoErrors.Recover(&err, "Pipeline.Fit")

	if p.Scaler == nil || p.Classifier == nil {
		return scigoErrors.NewValueError("Pipeline.Fit", "pipeline requires both a scaler and a classifier")
	}

	logger := log.GetLoggerWithName("pipeline")
	rows, cols := X.Dims()
	logger.Debug("Fitting pipeline",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols)

	scaled, err := p.Scaler.FitTransform(X)
	if err != nil {
		return scigoErrors.Wrap(err, "scaler step failed")
	}
	if err := p.Classifier.FitWeighted(scaled, y, sampleWeight); err != nil {
		return scigoErrors.Wrap(err, "classifier step failed")
	}

	p.SetFitted()
	return nil
}

// PredictProba returns class probabilities of the scaled rows.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Pipeline", "PredictProba")
	}
	scaled, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Classifier.PredictProba(scaled)
}

// Predict returns the classifier's class labels of the scaled rows.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Pipeline", "Predict")
	}
	scaled, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Classifier.Predict(scaled)
}

// NClasses returns the number of classes of the final step.
func (p *Pipeline) NClasses() int {
	if p.Classifier == nil {
		return 0
	}
	return p.Classifier.NClasses()
}

// GetParams returns the parameters of every step keyed "step__param".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	if p.Scaler != nil {
		for k, v := range p.Scaler.GetParams() {
			params["scaler__"+k] = v
		}
	}
	if p.Classifier != nil {
		for k, v := range p.Classifier.GetParams() {
			params["classifier__"+k] = v
		}
	}
	return params
}
