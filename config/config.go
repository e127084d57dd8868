// Package config provides configuration loading and management for the
// exoplanet pipeline.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/exoplanet/classify"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/survey"
	"github.com/YuminosukeSato/exoplanet/training"
)

// Config represents the complete pipeline configuration
type Config struct {
	Log       LogConfig                `yaml:"log"`
	Datasets  []DatasetConfig          `yaml:"datasets"`
	Training  training.Hyperparameters `yaml:"training"`
	Inference InferenceConfig          `yaml:"inference"`
	Artifacts ArtifactsConfig          `yaml:"artifacts"`
	Runs      RunsConfig               `yaml:"runs"`
	Watch     WatchConfig              `yaml:"watch"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`
}

// DatasetConfig names one raw survey table used for training
type DatasetConfig struct {
	Path   string `yaml:"path"`
	Survey string `yaml:"survey"`
}

// InferenceConfig configures the reject-option classifier
type InferenceConfig struct {
	// Threshold is the minimum top-class probability to accept a label (0, 1]
	Threshold float64 `yaml:"threshold"`
	// IDColumns are raw columns copied into prediction output when present
	IDColumns []string `yaml:"id_columns"`
}

// ArtifactsConfig configures where trained models are written
type ArtifactsConfig struct {
	// ModelPath is the gob file holding the pipeline and label codec
	ModelPath string `yaml:"model_path"`
	// ReportPlot is an optional image path for the per-class F1 chart
	ReportPlot string `yaml:"report_plot"`
}

// RunsConfig configures the training-run ledger
type RunsConfig struct {
	// Path is the sqlite database file (empty = ledger disabled)
	Path string `yaml:"path"`
}

// WatchConfig configures the file-drop batch runner
type WatchConfig struct {
	// Inbox is watched for new CSV files
	Inbox string `yaml:"inbox"`
	// Outbox receives <name>.predictions.csv files
	Outbox string `yaml:"outbox"`
	// Survey is used for files whose name does not start with a survey name
	Survey string `yaml:"survey"`
	// MetricsAddr serves Prometheus /metrics (empty = disabled)
	MetricsAddr string `yaml:"metrics_addr"`
	// Settle is how long a file must stay unchanged before it is processed
	Settle time.Duration `yaml:"settle"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Datasets: []DatasetConfig{
			{Path: "data/KeplerObjectsInterest.csv", Survey: string(survey.Kepler)},
			{Path: "data/TessObjectsOfInterest.csv", Survey: string(survey.TESS)},
			{Path: "data/K2PlanetsAndCandidates.csv", Survey: string(survey.K2)},
		},
		Training: training.DefaultHyperparameters(),
		Inference: InferenceConfig{
			Threshold: classify.DefaultThreshold,
			IDColumns: []string{"kepoi_name", "id", "rowid"},
		},
		Artifacts: ArtifactsConfig{
			ModelPath: "models/exoplanet.gob",
		},
		Runs: RunsConfig{
			Path: "models/runs.db",
		},
		Watch: WatchConfig{
			Inbox:       "inbox",
			Outbox:      "outbox",
			Survey:      string(survey.Kepler),
			MetricsAddr: ":9090",
			Settle:      500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	for _, d := range c.Datasets {
		if d.Path == "" {
			return errors.NewValidationError("datasets.path", "is required", d.Path)
		}
		if _, err := survey.ParseSurvey(d.Survey); err != nil {
			return errors.Wrapf(err, "dataset %s", d.Path)
		}
	}
	if err := c.Training.Validate(); err != nil {
		return errors.Wrap(err, "training")
	}
	if err := classify.ValidateThreshold(c.Inference.Threshold); err != nil {
		return errors.Wrap(err, "inference")
	}
	if c.Artifacts.ModelPath == "" {
		return errors.NewValidationError("artifacts.model_path", "is required", c.Artifacts.ModelPath)
	}
	if c.Watch.Survey != "" {
		if _, err := survey.ParseSurvey(c.Watch.Survey); err != nil {
			return errors.Wrap(err, "watch")
		}
	}
	if c.Watch.Settle < 0 {
		return errors.NewValidationError("watch.settle", "must not be negative", c.Watch.Settle)
	}
	return nil
}

// Sources converts the dataset entries to parsed surveys.
func (c *Config) Sources() ([]DatasetSource, error) {
	out := make([]DatasetSource, 0, len(c.Datasets))
	for _, d := range c.Datasets {
		s, err := survey.ParseSurvey(d.Survey)
		if err != nil {
			return nil, err
		}
		out = append(out, DatasetSource{Path: d.Path, Survey: s})
	}
	return out, nil
}

// WatchSurvey returns the parsed default survey for inbox files, or
// survey.Kepler when none is configured.
func (c *Config) WatchSurvey() survey.Survey {
	s, err := survey.ParseSurvey(c.Watch.Survey)
	if err != nil {
		return survey.Kepler
	}
	return s
}

// DatasetSource is a DatasetConfig with its survey parsed.
type DatasetSource struct {
	Path   string
	Survey survey.Survey
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}
