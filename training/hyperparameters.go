// Package training fits the scaler + gradient boosted classifier pipeline on
// a merged survey table and evaluates it on a stratified hold-out partition.
package training

import (
	"fmt"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// Fixed training settings. They are not exposed as hyperparameters.
const (
	Subsample       = 0.8
	ColsampleBytree = 0.8
	TestFraction    = 0.2
	RandomSeed      = 42
)

// Hyperparameters are the caller-tunable settings of one training run.
// They are passed by value; Train never keeps a reference to them.
type Hyperparameters struct {
	NEstimators  int     `yaml:"n_estimators" json:"n_estimators"`
	MaxDepth     int     `yaml:"max_depth" json:"max_depth"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
}

// DefaultHyperparameters returns 500 trees of depth 6 at learning rate 0.05.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		NEstimators:  500,
		MaxDepth:     6,
		LearningRate: 0.05,
	}
}

// Validate checks that every value is in range.
func (h Hyperparameters) Validate() error {
	if h.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", h.NEstimators)
	}
	if h.MaxDepth <= 0 {
		return errors.NewValidationError("max_depth", "must be positive", h.MaxDepth)
	}
	if !(h.LearningRate > 0 && h.LearningRate <= 1) {
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", h.LearningRate)
	}
	return nil
}

func (h Hyperparameters) String() string {
	return fmt.Sprintf("n_estimators=%d max_depth=%d learning_rate=%g", h.NEstimators, h.MaxDepth, h.LearningRate)
}
