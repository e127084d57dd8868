// Package model defines the estimator contracts shared by the preprocessing,
// boosting and pipeline packages, plus gob persistence helpers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Estimator is anything carrying a fitted state.
type Estimator interface {
	IsFitted() bool
}

// Fitter は教師あり学習モデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// WeightedFitter accepts one non-negative weight per training row.
type WeightedFitter interface {
	FitWeighted(X, y mat.Matrix, sampleWeight []float64) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilityModel produces an n×k matrix of class probabilities whose rows sum to 1.
type ProbabilityModel interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Fitter
	WeightedFitter
	Predictor
	ProbabilityModel

	// NClasses returns the number of classes seen during fitting.
	NClasses() int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}
