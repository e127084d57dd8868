package classify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/survey"
	"github.com/YuminosukeSato/exoplanet/training"
)

// fixedModel returns the same probabilities regardless of input.
type fixedModel struct {
	proba *mat.Dense
	calls int
}

func (m *fixedModel) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	m.calls++
	r, _ := X.Dims()
	n, _ := m.proba.Dims()
	if r != n {
		return nil, errors.NewDimensionError("fixedModel", n, r, 0)
	}
	return mat.DenseCopyOf(m.proba), nil
}

func newCodec(t *testing.T) *preprocessing.LabelEncoder {
	t.Helper()
	codec := preprocessing.NewLabelEncoder()
	require.NoError(t, codec.Fit([]string{"CONFIRMED", "CANDIDATE", "FALSE POSITIVE"}))
	return codec
}

func probabilities() *mat.Dense {
	// クラス順: CANDIDATE, CONFIRMED, FALSE POSITIVE
	return mat.NewDense(4, 3, []float64{
		0.10, 0.85, 0.05,
		0.65, 0.20, 0.15,
		0.40, 0.40, 0.20,
		0.20, 0.10, 0.70,
	})
}

func TestClassify(t *testing.T) {
	m := &fixedModel{proba: probabilities()}
	decisions, err := Classify(m, newCodec(t), mat.NewDense(4, 9, nil), DefaultThreshold)
	require.NoError(t, err)

	assert.Equal(t, []Decision{
		{Label: survey.Confirmed, Confidence: 0.85},
		{Label: survey.Candidate, Confidence: 0.65},
		{Label: survey.Unknown, Confidence: 0.40},
		{Label: survey.FalsePositive, Confidence: 0.70},
	}, decisions)
	assert.Equal(t, 1, CountAbstained(decisions))
}

func TestClassifyThresholdIsInclusive(t *testing.T) {
	m := &fixedModel{proba: probabilities()}
	decisions, err := Classify(m, newCodec(t), mat.NewDense(4, 9, nil), StrictThreshold)
	require.NoError(t, err)
	assert.Equal(t, survey.FalsePositive, decisions[3].Label)
	assert.Equal(t, survey.Unknown, decisions[1].Label)
}

func TestClassifyTieTakesFirstClass(t *testing.T) {
	proba := mat.NewDense(1, 3, []float64{0.45, 0.45, 0.10})
	decisions, err := Decide(proba, newCodec(t), 0.3)
	require.NoError(t, err)
	assert.Equal(t, survey.Candidate, decisions[0].Label)
}

func TestClassifyThresholdMonotonic(t *testing.T) {
	codec := newCodec(t)
	proba := probabilities()
	thresholds := []float64{0.05, 0.3, 0.5, 0.6, 0.65, 0.7, 0.85, 0.9, 1.0}

	var prev []Decision
	for _, th := range thresholds {
		decisions, err := Decide(proba, codec, th)
		require.NoError(t, err)
		if prev != nil {
			for i := range decisions {
				assert.Equal(t, prev[i].Confidence, decisions[i].Confidence)
				if prev[i].Abstained() {
					assert.True(t, decisions[i].Abstained(), "row %d came back from UNKNOWN at %v", i, th)
				}
				if !decisions[i].Abstained() {
					assert.Equal(t, prev[i].Label, decisions[i].Label)
				}
			}
		}
		prev = decisions
	}
}

func TestClassifyIdempotent(t *testing.T) {
	m := &fixedModel{proba: probabilities()}
	codec := newCodec(t)
	rows := mat.NewDense(4, 9, nil)

	a, err := Classify(m, codec, rows, DefaultThreshold)
	require.NoError(t, err)
	b, err := Classify(m, codec, rows, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"CANDIDATE", "CONFIRMED", "FALSE POSITIVE"}, codec.Classes)
}

func TestClassifyConcurrentThresholds(t *testing.T) {
	codec := newCodec(t)
	proba := probabilities()
	var wg sync.WaitGroup
	for _, th := range []float64{DefaultThreshold, StrictThreshold} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d, err := Decide(proba, codec, th)
				assert.NoError(t, err)
				assert.Len(t, d, 4)
			}
		}()
	}
	wg.Wait()
}

func TestClassifyInvalidThreshold(t *testing.T) {
	m := &fixedModel{proba: probabilities()}
	for _, th := range []float64{0, -0.1, 1.01} {
		_, err := Classify(m, newCodec(t), mat.NewDense(4, 9, nil), th)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "threshold %v", th)
	}
	assert.Equal(t, 0, m.calls)
}

func TestDecideClassCountMismatch(t *testing.T) {
	_, err := Decide(mat.NewDense(1, 2, []float64{0.5, 0.5}), newCodec(t), 0.5)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestClassifyRequiresFittedCodec(t *testing.T) {
	tests := []struct {
		name  string
		codec *preprocessing.LabelEncoder
	}{
		{"nil", nil},
		{"unfitted", preprocessing.NewLabelEncoder()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fixedModel{proba: probabilities()}
			var nf *errors.NotFittedError

			_, err := Decide(probabilities(), tt.codec, DefaultThreshold)
			assert.True(t, errors.As(err, &nf))

			frame := survey.NewFrame(4)
			_, err = ClassifyFrame(m, tt.codec, frame, DefaultThreshold)
			assert.True(t, errors.As(err, &nf))
			assert.Equal(t, 0, m.calls)
		})
	}

	var nf *errors.NotFittedError
	_, err := Classify(nil, newCodec(t), mat.NewDense(4, 9, nil), DefaultThreshold)
	assert.True(t, errors.As(err, &nf))
}

func TestClassifyFrameEmpty(t *testing.T) {
	m := &fixedModel{proba: probabilities()}
	d, err := ClassifyFrame(m, newCodec(t), survey.NewFrame(0), DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, d)
	assert.Equal(t, 0, m.calls)
}

func TestClassifyFrameWithTrainedPipeline(t *testing.T) {
	var rows [][]float64
	var labels []survey.Label
	for c, l := range []survey.Label{survey.Confirmed, survey.FalsePositive} {
		for i := 0; i < 30; i++ {
			row := make([]float64, survey.NumFeatures)
			row[survey.Depth] = float64(c*1000 + i)
			rows = append(rows, row)
			labels = append(labels, l)
		}
	}
	frame, err := survey.NewFrameFromRows(rows)
	require.NoError(t, err)

	result, err := training.Train(&dataset.TrainingTable{Features: frame, Labels: labels},
		training.Hyperparameters{NEstimators: 20, MaxDepth: 2, LearningRate: 0.3})
	require.NoError(t, err)

	query, err := survey.NewFrameFromRows([][]float64{rows[0], rows[59]})
	require.NoError(t, err)
	decisions, err := ClassifyFrame(result.Pipeline, result.Codec, query, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, survey.Confirmed, decisions[0].Label)
	assert.Equal(t, survey.FalsePositive, decisions[1].Label)
	assert.Greater(t, decisions[0].Confidence, DefaultThreshold)
}
