package lightgbm

import (
	"bytes"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// threeBlobs returns n rows per class around well separated centers.
func threeBlobs(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	centers := [][]float64{{0, 0, 0}, {5, 5, 0}, {0, 5, 5}}
	X := mat.NewDense(3*n, 3, nil)
	y := mat.NewDense(3*n, 1, nil)
	for c, center := range centers {
		for i := 0; i < n; i++ {
			row := c*n + i
			for j := range center {
				X.Set(row, j, center[j]+rng.NormFloat64()*0.5)
			}
			y.Set(row, 0, float64(c))
		}
	}
	return X, y
}

func TestLGBMClassifierMulticlassFit(t *testing.T) {
	X, y := threeBlobs(50, 1)

	clf := NewLGBMClassifier().WithNumIterations(30)
	require.NoError(t, clf.Fit(X, y))

	assert.True(t, clf.IsFitted())
	assert.Equal(t, 3, clf.NClasses())
	assert.Equal(t, []int{0, 1, 2}, clf.Classes)
	assert.Len(t, clf.Model.Trees, 30*3)

	pred, err := clf.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := 0; i < 150; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 145)
}

func TestLGBMClassifierPredictProbaRowsSumToOne(t *testing.T) {
	X, y := threeBlobs(30, 2)

	clf := NewLGBMClassifier().WithNumIterations(20).WithSubsample(0.8).WithColsampleBytree(0.8)
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	assert.Equal(t, 90, rows)
	assert.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := proba.At(i, j)
			assert.True(t, p >= 0 && p <= 1)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestLGBMClassifierBinaryUsesTwoTreesPerRound(t *testing.T) {
	X := mat.NewDense(40, 1, nil)
	y := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		X.Set(i, 0, float64(i))
		if i >= 20 {
			y.Set(i, 0, 1)
		}
	}

	clf := NewLGBMClassifier().WithNumIterations(10)
	require.NoError(t, clf.Fit(X, y))
	assert.Len(t, clf.Model.Trees, 20)

	pred, err := clf.Predict(mat.NewDense(2, 1, []float64{0, 39}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestLGBMClassifierNonContiguousLabels(t *testing.T) {
	X := mat.NewDense(40, 1, nil)
	y := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 7)
		if i >= 20 {
			y.Set(i, 0, 3)
		}
	}

	clf := NewLGBMClassifier().WithNumIterations(10)
	require.NoError(t, clf.Fit(X, y))
	assert.Equal(t, []int{3, 7}, clf.Classes)

	pred, err := clf.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, 7.0, pred.At(0, 0))
}

func TestLGBMClassifierDeterministic(t *testing.T) {
	X, y := threeBlobs(30, 3)

	fit := func() mat.Matrix {
		clf := NewLGBMClassifier().WithNumIterations(15).WithSubsample(0.8).WithColsampleBytree(0.67)
		require.NoError(t, clf.Fit(X, y))
		p, err := clf.PredictProba(X)
		require.NoError(t, err)
		return p
	}
	assert.True(t, mat.Equal(fit(), fit()))
}

func TestLGBMClassifierMissingValues(t *testing.T) {
	// 特徴量0は全て欠損、特徴量1でクラスが分かれる
	X := mat.NewDense(60, 2, nil)
	y := mat.NewDense(60, 1, nil)
	for i := 0; i < 60; i++ {
		X.Set(i, 0, math.NaN())
		X.Set(i, 1, float64(i%2))
		y.Set(i, 0, float64(i%2))
	}

	clf := NewLGBMClassifier().WithNumIterations(20)
	require.NoError(t, clf.Fit(X, y))

	for _, tree := range clf.Model.Trees {
		for _, node := range tree.Nodes {
			if !node.IsLeaf() {
				assert.Equal(t, 1, node.SplitFeature)
			}
		}
	}

	pred, err := clf.Predict(mat.NewDense(2, 2, []float64{math.NaN(), 0, math.NaN(), 1}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestLGBMClassifierLearnsMissingDirection(t *testing.T) {
	// 欠損はクラス1にだけ現れる
	X := mat.NewDense(80, 1, nil)
	y := mat.NewDense(80, 1, nil)
	for i := 0; i < 80; i++ {
		if i < 40 {
			X.Set(i, 0, float64(i))
		} else if i < 60 {
			X.Set(i, 0, math.NaN())
			y.Set(i, 0, 1)
		} else {
			X.Set(i, 0, float64(i))
			y.Set(i, 0, 1)
		}
	}

	clf := NewLGBMClassifier().WithNumIterations(30)
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(mat.NewDense(1, 1, []float64{math.NaN()}))
	require.NoError(t, err)
	assert.Greater(t, proba.At(0, 1), 0.5)
}

func TestLGBMClassifierSampleWeightShiftsPrior(t *testing.T) {
	// 特徴量に情報がない場合、重みの大きいクラスが優勢になる
	X := mat.NewDense(40, 1, nil)
	y := mat.NewDense(40, 1, nil)
	w := make([]float64, 40)
	for i := 0; i < 40; i++ {
		X.Set(i, 0, 1)
		y.Set(i, 0, float64(i%2))
		w[i] = 1
		if i%2 == 1 {
			w[i] = 4
		}
	}

	clf := NewLGBMClassifier().WithNumIterations(50)
	require.NoError(t, clf.FitWeighted(X, y, w))

	proba, err := clf.PredictProba(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Greater(t, proba.At(0, 1), proba.At(0, 0))
}

func TestLGBMClassifierErrors(t *testing.T) {
	clf := NewLGBMClassifier()

	_, err := clf.Predict(mat.NewDense(1, 2, nil))
	var nf *scigoErrors.NotFittedError
	assert.True(t, scigoErrors.As(err, &nf))

	err = clf.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{0, 1}))
	var dim *scigoErrors.DimensionError
	assert.True(t, scigoErrors.As(err, &dim))

	err = clf.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 1}))
	var ve *scigoErrors.ValueError
	assert.True(t, scigoErrors.As(err, &ve))

	err = clf.FitWeighted(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{0, 1}), []float64{1, -1})
	var val *scigoErrors.ValidationError
	assert.True(t, scigoErrors.As(err, &val))

	X, y := threeBlobs(10, 4)
	require.NoError(t, clf.WithNumIterations(2).Fit(X, y))
	_, err = clf.PredictProba(mat.NewDense(1, 5, nil))
	assert.True(t, scigoErrors.As(err, &dim))
}

func TestLGBMClassifierGobRoundTrip(t *testing.T) {
	X, y := threeBlobs(20, 5)
	clf := NewLGBMClassifier().WithNumIterations(10)
	require.NoError(t, clf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(clf, &buf))
	var restored LGBMClassifier
	require.NoError(t, model.LoadModelFromReader(&restored, &buf))

	assert.True(t, restored.IsFitted())
	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestLGBMClassifierConcurrentPredict(t *testing.T) {
	X, y := threeBlobs(20, 6)
	clf := NewLGBMClassifier().WithNumIterations(10)
	require.NoError(t, clf.Fit(X, y))
	want, err := clf.PredictProba(X)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := clf.PredictProba(X)
			assert.NoError(t, err)
			assert.True(t, mat.Equal(want, got))
		}()
	}
	wg.Wait()
}

func TestFeatureImportances(t *testing.T) {
	X, y := threeBlobs(30, 7)
	// 特徴量2はクラス0/1を区別しない
	clf := NewLGBMClassifier().WithNumIterations(10)
	require.NoError(t, clf.Fit(X, y))

	imp, err := clf.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, imp, 3)
	sum := imp[0] + imp[1] + imp[2]
	assert.InDelta(t, 1.0, sum, 1e-9)
}
