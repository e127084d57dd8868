package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/survey"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.6, c.Inference.Threshold)
	assert.Equal(t, 500, c.Training.NEstimators)
	assert.Len(t, c.Datasets, 3)
}

func TestWatchSurvey(t *testing.T) {
	c := DefaultConfig()
	c.Watch.Survey = "TESS"
	assert.Equal(t, survey.TESS, c.WatchSurvey())

	c.Watch.Survey = ""
	assert.Equal(t, survey.Kepler, c.WatchSurvey())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"unknown survey", func(c *Config) { c.Datasets[0].Survey = "gaia" }},
		{"empty dataset path", func(c *Config) { c.Datasets[1].Path = "" }},
		{"zero trees", func(c *Config) { c.Training.NEstimators = 0 }},
		{"threshold above one", func(c *Config) { c.Inference.Threshold = 1.2 }},
		{"zero threshold", func(c *Config) { c.Inference.Threshold = 0 }},
		{"no model path", func(c *Config) { c.Artifacts.ModelPath = "" }},
		{"negative settle", func(c *Config) { c.Watch.Settle = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exoplanet.yaml")
	yaml := `
training:
  n_estimators: 200
  max_depth: 4
  learning_rate: 0.1
inference:
  threshold: 0.7
datasets:
  - path: koi.csv
    survey: KEPLER
watch:
  settle: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, 200, c.Training.NEstimators)
	assert.Equal(t, 0.7, c.Inference.Threshold)
	assert.Equal(t, 2*time.Second, c.Watch.Settle)
	// 指定されていない項目はデフォルトのまま
	assert.Equal(t, "models/exoplanet.gob", c.Artifacts.ModelPath)

	sources, err := c.Sources()
	require.NoError(t, err)
	assert.Equal(t, []DatasetSource{{Path: "koi.csv", Survey: survey.Kepler}}, sources)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "exoplanet.yaml")
	c := DefaultConfig()
	c.Inference.Threshold = 0.65
	require.NoError(t, c.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
