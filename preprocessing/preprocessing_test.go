package preprocessing

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

var nan = math.NaN()

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), scaler.Scale[0], 1e-12)
	// 定数列のスケールは1
	assert.Equal(t, 1.0, scaler.Scale[1])
	assert.InDelta(t, (1-2.5)/math.Sqrt(1.25), out.At(0, 0), 1e-12)
	assert.Equal(t, 0.0, out.At(3, 1))

	back, err := scaler.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-9))
}

func TestStandardScalerIgnoresNaN(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, nan,
		nan, nan,
		3, nan,
	})

	scaler := NewStandardScalerDefault()
	require.NoError(t, scaler.Fit(X))
	assert.Equal(t, 2.0, scaler.Mean[0])
	assert.Equal(t, 1.0, scaler.Scale[0])
	// 全欠損の列
	assert.Equal(t, 0.0, scaler.Mean[1])
	assert.Equal(t, 1.0, scaler.Scale[1])

	out, err := scaler.Transform(X)
	require.NoError(t, err)
	assert.Equal(t, -1.0, out.At(0, 0))
	assert.True(t, math.IsNaN(out.At(1, 0)))
	assert.True(t, math.IsNaN(out.At(2, 1)))
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	assert.Error(t, scaler.Fit(&mat.Dense{}))
}

func TestStandardScalerGobRoundTrip(t *testing.T) {
	scaler := NewStandardScalerDefault()
	require.NoError(t, scaler.Fit(mat.NewDense(2, 1, []float64{0, 2})))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(scaler, &buf))
	var restored StandardScaler
	require.NoError(t, model.LoadModelFromReader(&restored, &buf))

	assert.True(t, restored.IsFitted())
	assert.Equal(t, scaler.Mean, restored.Mean)
	assert.Equal(t, "StandardScaler(with_mean=true, with_std=true, n_features=1)", restored.String())
}

func TestLabelEncoder(t *testing.T) {
	enc := NewLabelEncoder()
	idx, err := enc.FitTransform([]string{"FALSE POSITIVE", "CONFIRMED", "CANDIDATE", "CONFIRMED"})
	require.NoError(t, err)

	assert.Equal(t, []string{"CANDIDATE", "CONFIRMED", "FALSE POSITIVE"}, enc.Classes)
	assert.Equal(t, []int{2, 1, 0, 1}, idx)
	assert.Equal(t, 3, enc.NClasses())

	label, err := enc.Inverse(2)
	require.NoError(t, err)
	assert.Equal(t, "FALSE POSITIVE", label)

	labels, err := enc.InverseTransform([]int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"CANDIDATE", "CONFIRMED"}, labels)

	_, err = enc.Inverse(3)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, err = enc.Transform([]string{"UNKNOWN"})
	assert.True(t, errors.As(err, &ve))
}

func TestLabelEncoderAfterGob(t *testing.T) {
	enc := NewLabelEncoder()
	require.NoError(t, enc.Fit([]string{"b", "a"}))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(enc, &buf))
	var restored LabelEncoder
	require.NoError(t, model.LoadModelFromReader(&restored, &buf))

	idx, err := restored.Transform([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idx)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"with missing", []float64{1, nan, 3}, 2},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.values))
		})
	}
	assert.True(t, math.IsNaN(Median([]float64{nan, nan})))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestMedianImputer(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, nan,
		nan, nan,
		3, nan,
	})

	imp := NewMedianImputer()
	out, err := imp.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 2.0, out.At(1, 0))
	assert.True(t, math.IsNaN(imp.Statistics[1]))
	assert.True(t, math.IsNaN(out.At(0, 1)))
}

func TestFillNaN(t *testing.T) {
	v := []float64{1, nan, 3, nan}
	assert.Equal(t, 2, FillNaN(v, 9))
	assert.Equal(t, []float64{1, 9, 3, 9}, v)
	assert.Equal(t, 0, FillNaN([]float64{nan}, nan))
}
