package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := Accuracy(yTrue, yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}

	cm, labels, err := ConfusionMatrix(yTrue, yPred, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, labels)
	want := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		0, 2, 0,
		1, 0, 1,
	})
	assert.True(t, mat.Equal(want, cm))
}

func TestConfusionMatrixLabelsAreUnion(t *testing.T) {
	// 予測にのみ現れるラベルも行列に含まれる
	cm, labels, err := ConfusionMatrix([]int{0, 0}, []int{0, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, labels)
	r, c := cm.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
}

func TestConfusionMatrixErrors(t *testing.T) {
	_, _, err := ConfusionMatrix(nil, nil, nil)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, _, err = ConfusionMatrix([]int{0}, []int{0, 1}, nil)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestClassificationReport(t *testing.T) {
	yTrue := []int{0, 0, 0, 0, 1, 1, 2, 2}
	yPred := []int{0, 0, 0, 1, 1, 1, 2, 0}
	names := []string{"CANDIDATE", "CONFIRMED", "FALSE POSITIVE"}

	r, err := NewClassificationReport(yTrue, yPred, names)
	require.NoError(t, err)
	require.Len(t, r.Classes, 3)

	c0 := r.Classes[0]
	assert.Equal(t, "CANDIDATE", c0.Name)
	assert.InDelta(t, 0.75, c0.Precision, 1e-9)
	assert.InDelta(t, 0.75, c0.Recall, 1e-9)
	assert.InDelta(t, 0.75, c0.F1, 1e-9)
	assert.Equal(t, 4, c0.Support)

	c1 := r.Classes[1]
	assert.InDelta(t, 2.0/3.0, c1.Precision, 1e-9)
	assert.InDelta(t, 1.0, c1.Recall, 1e-9)
	assert.InDelta(t, 0.8, c1.F1, 1e-9)

	c2 := r.Classes[2]
	assert.InDelta(t, 1.0, c2.Precision, 1e-9)
	assert.InDelta(t, 0.5, c2.Recall, 1e-9)

	assert.InDelta(t, 0.75, r.Accuracy, 1e-9)
	assert.Equal(t, 8, r.MacroAvg.Support)
	assert.InDelta(t, (0.75+0.8+2.0/3.0)/3, r.MacroAvg.F1, 1e-9)
	assert.InDelta(t, (0.75*4+0.8*2+2.0/3.0*2)/8, r.WeightedAvg.F1, 1e-9)

	text := r.String()
	assert.Contains(t, text, "FALSE POSITIVE")
	assert.Contains(t, text, "weighted avg")
	assert.Contains(t, text, "accuracy")
}

// 警告ハンドラはグローバルなので並列実行しない
func TestClassificationReportZeroDivision(t *testing.T) {
	var mu sync.Mutex
	var warnings []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	defer errors.SetWarningHandler(nil)

	// ラベル1は一度も予測されない
	r, err := NewClassificationReport([]int{0, 1, 1}, []int{0, 0, 0}, nil)
	require.NoError(t, err)

	assert.Equal(t, "1", r.Classes[1].Name)
	assert.Equal(t, 0.0, r.Classes[1].Precision)
	assert.Equal(t, 0.0, r.Classes[1].F1)
	require.Len(t, warnings, 1)
	var w *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, "precision", w.Metric)
}

func TestPlotReport(t *testing.T) {
	r, err := NewClassificationReport([]int{0, 1, 2, 2}, []int{0, 1, 2, 1}, []string{"a", "b", "c"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "f1.png")
	require.NoError(t, PlotReport(r, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, PlotReport(&ClassificationReport{}, path))
}
