package serving

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/YuminosukeSato/exoplanet/dataset"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/runstore"
	"github.com/YuminosukeSato/exoplanet/training"
)

// Registry holds the artifact currently used for predictions.
//
// Current is lock-free. Retrain and Load are serialized with each other but
// never block readers.
type Registry struct {
	current atomic.Pointer[training.Artifact]

	// retrainMu serializes writers
	retrainMu sync.Mutex

	artifactPath string
	runs         *runstore.Store
	metrics      *Metrics
	logger       log.Logger
}

// NewRegistry creates an empty registry. artifactPath is where Load reads and
// Retrain writes; empty keeps artifacts in memory only.
func NewRegistry(artifactPath string) *Registry {
	return &Registry{
		artifactPath: artifactPath,
		logger:       log.GetLoggerWithName("serving.registry"),
	}
}

// WithRunStore records every successful retrain in s.
func (r *Registry) WithRunStore(s *runstore.Store) *Registry {
	r.runs = s
	return r
}

// WithMetrics counts retrains on m.
func (r *Registry) WithMetrics(m *Metrics) *Registry {
	r.metrics = m
	return r
}

// ArtifactPath returns the file Load reads.
func (r *Registry) ArtifactPath() string {
	return r.artifactPath
}

// Current returns the published artifact, or nil before the first Load/Swap.
// The returned artifact must be treated as read-only.
func (r *Registry) Current() *training.Artifact {
	return r.current.Load()
}

// Swap validates and publishes a, returning the artifact it replaced.
func (r *Registry) Swap(a *training.Artifact) (*training.Artifact, error) {
	if a == nil {
		return nil, errors.NewValidationError("artifact", "must not be nil", nil)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	prev := r.current.Swap(a)
	r.logger.Info("Published artifact",
		log.EstimatorIDKey, a.ID.String(),
		log.ClassesKey, a.Classes())
	return prev, nil
}

// Load reads the artifact file and publishes it.
func (r *Registry) Load() error {
	if r.artifactPath == "" {
		return errors.NewValidationError("artifact_path", "is required to load", "")
	}
	r.retrainMu.Lock()
	defer r.retrainMu.Unlock()

	a, err := training.LoadArtifact(r.artifactPath)
	if err != nil {
		return err
	}
	if cur := r.Current(); cur != nil && cur.ID == a.ID {
		return nil
	}
	_, err = r.Swap(a)
	return err
}

// RetrainResult reports a completed retrain.
type RetrainResult struct {
	Artifact *training.Artifact
	Result   *training.Result
	// Classes are the class names of the new model in index order.
	Classes []string
}

// Retrain merges sources, trains with hp and publishes the new artifact.
//
// The previous artifact keeps serving until the new one is complete; on any
// error it stays published. The artifact is written to disk (when a path is
// configured) before it is published, and the run is recorded afterwards.
func (r *Registry) Retrain(ctx context.Context, sources []dataset.Source, hp training.Hyperparameters) (res *RetrainResult, err error) {
	defer func() { r.metrics.ObserveRetrain(err) }()

	r.retrainMu.Lock()
	defer r.retrainMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := dataset.Merge(sources)
	if err != nil {
		return nil, err
	}
	result, err := training.Train(table, hp)
	if err != nil {
		return nil, err
	}
	// 学習中にキャンセルされた場合は公開しない
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := training.NewArtifact(result)
	if r.artifactPath != "" {
		if err := training.SaveArtifact(r.artifactPath, a); err != nil {
			return nil, err
		}
	}
	if _, err := r.Swap(a); err != nil {
		return nil, err
	}

	if r.runs != nil {
		run := runstore.NewRun(result, a, r.artifactPath)
		if err := r.runs.Record(ctx, run); err != nil {
			// モデルは既に公開済みなので記録失敗は警告に留める
			r.logger.Warn("Failed to record run", log.ErrAttrKey, err, log.EstimatorIDKey, a.ID.String())
		}
	}

	r.logger.Info("Retrained",
		log.OperationKey, log.OperationRetrain,
		log.EstimatorIDKey, a.ID.String(),
		log.AccuracyKey, a.Accuracy,
		log.MacroF1Key, a.MacroF1)

	return &RetrainResult{Artifact: a, Result: result, Classes: a.Classes()}, nil
}
