package training

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/survey"
)

var fastHP = Hyperparameters{NEstimators: 20, MaxDepth: 3, LearningRate: 0.3}

// balancedTable returns perClass rows of each label, separable on period and radius.
func balancedTable(t *testing.T, perClass int) *dataset.TrainingTable {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	labels := []survey.Label{survey.Confirmed, survey.Candidate, survey.FalsePositive}

	var rows [][]float64
	var ys []survey.Label
	for c, l := range labels {
		for i := 0; i < perClass; i++ {
			row := make([]float64, survey.NumFeatures)
			for j := range row {
				row[j] = rng.NormFloat64()
			}
			row[survey.Period] += float64(c) * 10
			row[survey.Radius] -= float64(c) * 5
			rows = append(rows, row)
			ys = append(ys, l)
		}
	}
	frame, err := survey.NewFrameFromRows(rows)
	require.NoError(t, err)
	origins := make([]survey.Survey, len(ys))
	for i := range origins {
		origins[i] = survey.Kepler
	}
	return &dataset.TrainingTable{Features: frame, Labels: ys, Origins: origins}
}

func TestHyperparametersValidate(t *testing.T) {
	tests := []struct {
		name    string
		hp      Hyperparameters
		wantErr bool
	}{
		{"defaults", DefaultHyperparameters(), false},
		{"zero trees", Hyperparameters{0, 6, 0.05}, true},
		{"zero depth", Hyperparameters{10, 0, 0.05}, true},
		{"zero learning rate", Hyperparameters{10, 6, 0}, true},
		{"learning rate above one", Hyperparameters{10, 6, 1.5}, true},
		{"NaN learning rate", Hyperparameters{10, 6, math.NaN()}, true},
		{"learning rate one", Hyperparameters{10, 6, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hp.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
	assert.Equal(t, Hyperparameters{500, 6, 0.05}, DefaultHyperparameters())
}

func TestTrainEndToEnd(t *testing.T) {
	table := balancedTable(t, 100)
	result, err := Train(table, fastHP)
	require.NoError(t, err)

	assert.Equal(t, []string{"CANDIDATE", "CONFIRMED", "FALSE POSITIVE"}, result.Codec.Classes)
	assert.Equal(t, 3, result.Pipeline.NClasses())
	assert.Equal(t, 240, result.TrainSize)
	assert.Equal(t, 60, result.TestSize)
	assert.Equal(t, fastHP, result.Hyperparameters)

	r, c := result.Report.ConfusionMatrix.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Len(t, result.Report.Labels, 3)
	assert.Greater(t, result.Report.Accuracy, 0.9)
	for _, cls := range result.Report.Classes {
		assert.Equal(t, 20, cls.Support)
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	table := balancedTable(t, 30)
	a, err := Train(table, fastHP)
	require.NoError(t, err)
	b, err := Train(table, fastHP)
	require.NoError(t, err)

	X, err := table.Features.Dense()
	require.NoError(t, err)
	pa, err := a.Pipeline.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.Pipeline.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
}

func TestTrainConcurrentCallsAreIndependent(t *testing.T) {
	table := balancedTable(t, 30)
	hps := []Hyperparameters{
		{NEstimators: 5, MaxDepth: 2, LearningRate: 0.1},
		{NEstimators: 8, MaxDepth: 3, LearningRate: 0.2},
	}
	results := make([]*Result, len(hps))
	var wg sync.WaitGroup
	for i, hp := range hps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := Train(table, hp)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for i, hp := range hps {
		require.NotNil(t, results[i])
		assert.Equal(t, hp, results[i].Hyperparameters)
		assert.Len(t, results[i].Pipeline.Classifier.Model.Trees, hp.NEstimators*3)
	}
}

func TestTrainInsufficientClasses(t *testing.T) {
	table := balancedTable(t, 10)
	for i := range table.Labels {
		table.Labels[i] = survey.Confirmed
	}
	_, err := Train(table, fastHP)
	var ice *errors.InsufficientClassesError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, 1, ice.Found)
	assert.Equal(t, []string{"CONFIRMED"}, ice.Classes)

	_, err = Train(&dataset.TrainingTable{Features: survey.NewFrame(0)}, fastHP)
	assert.True(t, errors.As(err, &ice))
	assert.Equal(t, 0, ice.Found)
}

func TestTrainRejectsBadHyperparameters(t *testing.T) {
	_, err := Train(balancedTable(t, 10), Hyperparameters{})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestTrainStratificationFailure(t *testing.T) {
	table := balancedTable(t, 10)
	table.Labels[0] = survey.Label("REFUTED") // 1件だけのクラス
	_, err := Train(table, fastHP)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestTrainRejectsUnknownRows(t *testing.T) {
	table := balancedTable(t, 10)
	table.Labels[3] = survey.Unknown
	_, err := Train(table, fastHP)
	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "UNKNOWN")
}

func TestArtifactRoundTrip(t *testing.T) {
	table := balancedTable(t, 30)
	result, err := Train(table, fastHP)
	require.NoError(t, err)

	artifact := NewArtifact(result)
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, SaveArtifact(path, artifact))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, artifact.ID, loaded.ID)
	assert.True(t, artifact.TrainedAt.Equal(loaded.TrainedAt))
	assert.Equal(t, survey.FeatureNames(), loaded.FeatureNames)
	assert.Equal(t, fastHP, loaded.Hyperparameters)
	assert.Equal(t, result.Codec.Classes, loaded.Classes())

	X, err := table.Features.Dense()
	require.NoError(t, err)
	want, err := result.Pipeline.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.Pipeline.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestArtifactFeatureImportances(t *testing.T) {
	result, err := Train(balancedTable(t, 30), fastHP)
	require.NoError(t, err)

	imp, err := NewArtifact(result).FeatureImportances()
	require.NoError(t, err)
	require.Len(t, imp, survey.NumFeatures)

	total := 0.0
	for i, fi := range imp {
		total += fi.Gain
		if i > 0 {
			assert.GreaterOrEqual(t, imp[i-1].Gain, fi.Gain)
		}
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	// クラスは period と radius だけで分かれる
	assert.Contains(t, []string{survey.Period.String(), survey.Radius.String()}, imp[0].Feature)

	_, err = (&Artifact{}).FeatureImportances()
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestLoadArtifactErrors(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)

	err = SaveArtifact(filepath.Join(t.TempDir(), "x.gob"), &Artifact{})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
