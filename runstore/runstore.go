// Package runstore keeps a ledger of training runs in a sqlite database.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/training"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so trained_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one training run as recorded in the ledger.
type Run struct {
	ID              uuid.UUID
	TrainedAt       time.Time
	Hyperparameters training.Hyperparameters
	Classes         []string
	Accuracy        float64
	MacroF1         float64
	TrainSize       int
	TestSize        int
	DurationMs      int64
	ArtifactPath    string
}

// NewRun builds a ledger entry from a training result and the artifact it produced.
func NewRun(r *training.Result, a *training.Artifact, artifactPath string) Run {
	return Run{
		ID:              a.ID,
		TrainedAt:       a.TrainedAt,
		Hyperparameters: a.Hyperparameters,
		Classes:         a.Classes(),
		Accuracy:        a.Accuracy,
		MacroF1:         a.MacroF1,
		TrainSize:       r.TrainSize,
		TestSize:        r.TestSize,
		DurationMs:      r.Duration.Milliseconds(),
		ArtifactPath:    artifactPath,
	}
}

// Store is a sqlite-backed run ledger. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create run store directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open run store %s", path)
	}
	// sqlite は書き込みを直列化する
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			trained_at        TEXT NOT NULL,
			n_estimators      INTEGER,
			max_depth         INTEGER,
			learning_rate     DOUBLE,
			classes           TEXT,
			accuracy          DOUBLE,
			macro_f1          DOUBLE,
			train_size        INTEGER,
			test_size         INTEGER,
			duration_ms       INTEGER,
			artifact_path     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_trained_at ON runs(trained_at);
	`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create runs table")
	}

	return &Store{db: db, logger: log.GetLoggerWithName("runstore")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run. Recording the same ID twice is an error.
func (s *Store) Record(ctx context.Context, run Run) error {
	classes, err := json.Marshal(run.Classes)
	if err != nil {
		return errors.Wrap(err, "failed to encode classes")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, trained_at, n_estimators, max_depth, learning_rate,
			classes, accuracy, macro_f1, train_size, test_size, duration_ms, artifact_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.TrainedAt.UTC().Format(timeLayout),
		run.Hyperparameters.NEstimators,
		run.Hyperparameters.MaxDepth,
		run.Hyperparameters.LearningRate,
		string(classes),
		run.Accuracy,
		run.MacroF1,
		run.TrainSize,
		run.TestSize,
		run.DurationMs,
		run.ArtifactPath,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record run %s", run.ID)
	}
	s.logger.Debug("Recorded training run",
		log.EstimatorIDKey, run.ID.String(),
		log.AccuracyKey, run.Accuracy,
		log.MacroF1Key, run.MacroF1)
	return nil
}

const selectRuns = `
	SELECT run_id, trained_at, n_estimators, max_depth, learning_rate,
		classes, accuracy, macro_f1, train_size, test_size, duration_ms, artifact_path
	FROM runs`

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + ` ORDER BY trained_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate runs")
	}
	return runs, nil
}

// Get returns the run with the given ID, or ErrRunNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrRunNotFound, "run %s", id)
	}
	return run, err
}

// Latest returns the most recent run, or ErrRunNotFound when the ledger is empty.
func (s *Store) Latest(ctx context.Context) (Run, error) {
	runs, err := s.List(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrRunNotFound
	}
	return runs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		id        string
		trainedAt string
		classes   string
	)
	err := sc.Scan(&id, &trainedAt,
		&run.Hyperparameters.NEstimators, &run.Hyperparameters.MaxDepth, &run.Hyperparameters.LearningRate,
		&classes, &run.Accuracy, &run.MacroF1, &run.TrainSize, &run.TestSize, &run.DurationMs, &run.ArtifactPath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, errors.Wrap(err, "failed to scan run")
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, errors.Wrapf(err, "invalid run id %q", id)
	}
	if run.TrainedAt, err = time.Parse(timeLayout, trainedAt); err != nil {
		return Run{}, errors.Wrapf(err, "invalid trained_at %q", trainedAt)
	}
	if err := json.Unmarshal([]byte(classes), &run.Classes); err != nil {
		return Run{}, errors.Wrapf(err, "invalid classes %q", classes)
	}
	return run, nil
}

// csvRun is the flat export layout of a Run.
type csvRun struct {
	ID           string `csv:"run_id"`
	TrainedAt    string `csv:"trained_at"`
	NEstimators  int    `csv:"n_estimators"`
	MaxDepth     int    `csv:"max_depth"`
	LearningRate string `csv:"learning_rate"`
	Classes      string `csv:"classes"`
	Accuracy     string `csv:"accuracy"`
	MacroF1      string `csv:"macro_f1"`
	TrainSize    int    `csv:"train_size"`
	TestSize     int    `csv:"test_size"`
	DurationMs   int64  `csv:"duration_ms"`
	ArtifactPath string `csv:"artifact_path"`
}

// WriteCSV writes runs as CSV with a header row.
func WriteCSV(w io.Writer, runs []Run) error {
	out := make([]*csvRun, len(runs))
	for i, r := range runs {
		out[i] = &csvRun{
			ID:           r.ID.String(),
			TrainedAt:    r.TrainedAt.UTC().Format(time.RFC3339),
			NEstimators:  r.Hyperparameters.NEstimators,
			MaxDepth:     r.Hyperparameters.MaxDepth,
			LearningRate: strconv.FormatFloat(r.Hyperparameters.LearningRate, 'g', -1, 64),
			Classes:      strings.Join(r.Classes, "|"),
			Accuracy:     strconv.FormatFloat(r.Accuracy, 'f', 6, 64),
			MacroF1:      strconv.FormatFloat(r.MacroF1, 'f', 6, 64),
			TrainSize:    r.TrainSize,
			TestSize:     r.TestSize,
			DurationMs:   r.DurationMs,
			ArtifactPath: r.ArtifactPath,
		}
	}
	if err := gocsv.Marshal(out, w); err != nil {
		return errors.Wrap(err, "failed to write runs csv")
	}
	return nil
}
