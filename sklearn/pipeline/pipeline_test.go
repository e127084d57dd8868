package pipeline

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/sklearn/lightgbm"
)

func twoClassData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(40, 2, nil)
	y := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		// 桁の大きく違う2特徴量
		X.Set(i, 0, float64(i)*1000)
		X.Set(i, 1, float64(i%3))
		if i >= 20 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func newPipeline() *Pipeline {
	return New(preprocessing.NewStandardScalerDefault(), lightgbm.NewLGBMClassifier().WithNumIterations(10))
}

func TestPipelineFitPredict(t *testing.T) {
	X, y := twoClassData()
	p := newPipeline()
	require.NoError(t, p.Fit(X, y))

	assert.True(t, p.IsFitted())
	assert.True(t, p.Scaler.IsFitted())
	assert.Equal(t, 2, p.NClasses())
	assert.Equal(t, []string{"scaler", "classifier"}, p.Steps())

	pred, err := p.Predict(mat.NewDense(2, 2, []float64{0, 0, 39000, 0}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestPipelineKeepsMissingValues(t *testing.T) {
	X, y := twoClassData()
	X.Set(3, 1, math.NaN())
	p := newPipeline()
	require.NoError(t, p.Fit(X, y))

	proba, err := p.PredictProba(mat.NewDense(1, 2, []float64{math.NaN(), math.NaN()}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba.At(0, 0)+proba.At(0, 1), 1e-9)
}

func TestPipelineErrors(t *testing.T) {
	p := newPipeline()
	_, err := p.PredictProba(mat.NewDense(1, 2, nil))
	var nf *scigoErrors.NotFittedError
	assert.True(t, scigoErrors.As(err, &nf))

	X, y := twoClassData()
	require.NoError(t, p.Fit(X, y))
	_, err = p.PredictProba(mat.NewDense(1, 3, nil))
	var dim *scigoErrors.DimensionError
	assert.True(t, scigoErrors.As(err, &dim))

	empty := &Pipeline{}
	err = empty.Fit(X, y)
	var ve *scigoErrors.ValueError
	assert.True(t, scigoErrors.As(err, &ve))
}

func TestPipelineGobRoundTrip(t *testing.T) {
	X, y := twoClassData()
	p := newPipeline()
	require.NoError(t, p.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(p, &buf))
	var restored Pipeline
	require.NoError(t, model.LoadModelFromReader(&restored, &buf))

	want, err := p.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestPipelineGetParams(t *testing.T) {
	params := newPipeline().GetParams()
	assert.Equal(t, 10, params["classifier__n_estimators"])
	assert.Equal(t, true, params["scaler__with_mean"])
}
