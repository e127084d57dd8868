package training

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/exoplanet/core/model"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/sklearn/pipeline"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// Artifact is the persisted form of a trained pipeline and its label codec.
type Artifact struct {
	ID              uuid.UUID
	TrainedAt       time.Time
	FeatureNames    []string
	Hyperparameters Hyperparameters
	Accuracy        float64
	MacroF1         float64

	Pipeline *pipeline.Pipeline
	Codec    *preprocessing.LabelEncoder
}

// NewArtifact wraps a training result with a fresh identity.
func NewArtifact(r *Result) *Artifact {
	a := &Artifact{
		ID:              uuid.New(),
		TrainedAt:       time.Now().UTC(),
		FeatureNames:    survey.FeatureNames(),
		Hyperparameters: r.Hyperparameters,
		Pipeline:        r.Pipeline,
		Codec:           r.Codec,
	}
	if r.Report != nil {
		a.Accuracy = r.Report.Accuracy
		a.MacroF1 = r.Report.MacroAvg.F1
	}
	return a
}

// Classes returns the codec's class names in index order.
func (a *Artifact) Classes() []string {
	return append([]string(nil), a.Codec.Classes...)
}

// FeatureImportance is the normalized split gain attributed to one unified feature.
type FeatureImportance struct {
	Feature string
	Gain    float64
}

// FeatureImportances returns the classifier's gain importances, highest first.
// Ties keep the unified feature order.
func (a *Artifact) FeatureImportances() ([]FeatureImportance, error) {
	if a.Pipeline == nil || a.Pipeline.Classifier == nil {
		return nil, errors.NewNotFittedError("Artifact", "FeatureImportances")
	}
	gains, err := a.Pipeline.Classifier.FeatureImportances()
	if err != nil {
		return nil, err
	}
	if len(gains) != len(a.FeatureNames) {
		return nil, errors.NewDimensionError("Artifact.FeatureImportances", len(a.FeatureNames), len(gains), 1)
	}
	out := make([]FeatureImportance, len(gains))
	for i, g := range gains {
		out[i] = FeatureImportance{Feature: a.FeatureNames[i], Gain: g}
	}
	slices.SortStableFunc(out, func(x, y FeatureImportance) int {
		return cmp.Compare(y.Gain, x.Gain)
	})
	return out, nil
}

// Validate checks that the artifact can serve predictions over the unified features.
func (a *Artifact) Validate() error {
	if a.Pipeline == nil || !a.Pipeline.IsFitted() {
		return errors.NewNotFittedError("Artifact", "Validate")
	}
	if a.Codec == nil || !a.Codec.IsFitted() {
		return errors.NewNotFittedError("LabelEncoder", "Validate")
	}
	if a.Codec.NClasses() != a.Pipeline.NClasses() {
		return errors.NewValueError("Artifact.Validate",
			fmt.Sprintf("codec has %d classes but the classifier has %d", a.Codec.NClasses(), a.Pipeline.NClasses()))
	}
	if !slices.Equal(a.FeatureNames, survey.FeatureNames()) {
		return errors.NewValueError("Artifact.Validate",
			fmt.Sprintf("artifact features %v do not match the unified features", a.FeatureNames))
	}
	return nil
}

// SaveArtifact writes a to path atomically.
func SaveArtifact(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return model.SaveModel(a, path)
}

// LoadArtifact reads and validates an artifact.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, errors.Wrapf(err, "failed to load artifact %s", path)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
