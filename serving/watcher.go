package serving

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/YuminosukeSato/exoplanet/classify"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/survey"
)

const (
	// predictionsSuffix is appended to the input base name in the outbox.
	predictionsSuffix = ".predictions.csv"

	// resultsBuffer is the size of the Results channel.
	resultsBuffer = 64

	minTick = 10 * time.Millisecond
)

// WatchConfig configures a Watcher.
type WatchConfig struct {
	Inbox  string
	Outbox string
	// Survey is used when the file name does not start with a survey name.
	Survey    survey.Survey
	Threshold float64
	// Settle is how long a file must go without events before it is read.
	Settle time.Duration
}

// FileResult reports one processed inbox file.
type FileResult struct {
	Input  string
	Output string
	Batch  *Batch
	Err    error
}

// Watcher classifies CSV files dropped into an inbox directory and reloads
// the registry when the artifact file is replaced.
type Watcher struct {
	cfg      WatchConfig
	service  *Service
	registry *Registry
	fsw      *fsnotify.Watcher
	logger   log.Logger

	artifactPath string
	// pending maps an inbox path to the time of its last event
	pending  map[string]time.Time
	reloadAt time.Time

	results chan FileResult
}

// NewWatcher validates cfg and creates the underlying fsnotify watcher.
func NewWatcher(cfg WatchConfig, service *Service) (*Watcher, error) {
	if cfg.Inbox == "" || cfg.Outbox == "" {
		return nil, errors.NewValidationError("watch", "inbox and outbox are required", cfg.Inbox)
	}
	if _, err := survey.ParseSurvey(string(cfg.Survey)); err != nil {
		return nil, err
	}
	if err := classify.ValidateThreshold(cfg.Threshold); err != nil {
		return nil, err
	}
	if cfg.Settle < 0 {
		return nil, errors.NewValidationError("settle", "must not be negative", cfg.Settle)
	}

	var err error
	if cfg.Inbox, err = filepath.Abs(cfg.Inbox); err != nil {
		return nil, errors.Wrap(err, "invalid inbox")
	}
	if cfg.Outbox, err = filepath.Abs(cfg.Outbox); err != nil {
		return nil, errors.Wrap(err, "invalid outbox")
	}
	artifactPath := ""
	if p := service.registry.ArtifactPath(); p != "" {
		if artifactPath, err = filepath.Abs(p); err != nil {
			return nil, errors.Wrap(err, "invalid artifact path")
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	return &Watcher{
		cfg:          cfg,
		service:      service,
		registry:     service.registry,
		fsw:          fsw,
		logger:       log.GetLoggerWithName("serving.watcher"),
		artifactPath: artifactPath,
		pending:      make(map[string]time.Time),
		results:      make(chan FileResult, resultsBuffer),
	}, nil
}

// Results returns processed-file reports. The channel is closed when Run
// returns. Reports are dropped when nobody reads them.
func (w *Watcher) Results() <-chan FileResult {
	return w.results
}

// Run watches until ctx is cancelled. CSV files already in the inbox without
// a matching output are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.results)
	defer w.fsw.Close()

	for _, dir := range []string{w.cfg.Inbox, w.cfg.Outbox} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	if err := w.fsw.Add(w.cfg.Inbox); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.cfg.Inbox)
	}
	if w.artifactPath != "" {
		// アトミックな rename を拾うためディレクトリを監視する
		dir := filepath.Dir(w.artifactPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
		if dir != w.cfg.Inbox {
			if err := w.fsw.Add(dir); err != nil {
				return errors.Wrapf(err, "failed to watch %s", dir)
			}
		}
	}

	if err := w.scanInbox(); err != nil {
		return err
	}

	w.logger.Info("Watching inbox",
		"inbox", w.cfg.Inbox,
		"outbox", w.cfg.Outbox,
		log.SurveyKey, w.cfg.Survey.String(),
		log.ThresholdKey, w.cfg.Threshold)

	tick := w.cfg.Settle / 2
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, time.Now())

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", err)

		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// scanInbox queues files that were dropped while nobody was watching.
func (w *Watcher) scanInbox() error {
	entries, err := os.ReadDir(w.cfg.Inbox)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", w.cfg.Inbox)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Inbox, e.Name())
		if !isInputFile(path) {
			continue
		}
		if _, err := os.Stat(OutputPath(w.cfg.Outbox, path)); err == nil {
			continue
		}
		w.pending[path] = time.Time{}
	}
	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event, now time.Time) {
	path := filepath.Clean(event.Name)

	if w.artifactPath != "" && path == w.artifactPath {
		if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
			w.reloadAt = now
		}
		return
	}

	if filepath.Dir(path) != w.cfg.Inbox || !isInputFile(path) {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		w.pending[path] = now
		w.logger.Debug("Inbox change detected", log.SourcePathKey, path, "op", event.Op.String())
	}
}

// flush processes every pending file that has settled.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	if !w.reloadAt.IsZero() && now.Sub(w.reloadAt) >= w.cfg.Settle {
		w.reloadAt = time.Time{}
		if err := w.registry.Load(); err != nil {
			w.logger.Error("Failed to reload artifact", err, log.SourcePathKey, w.artifactPath)
		}
	}

	for path, last := range w.pending {
		if now.Sub(last) < w.cfg.Settle {
			continue
		}
		delete(w.pending, path)
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	out := OutputPath(w.cfg.Outbox, path)
	sv := SurveyForFile(path, w.cfg.Survey)

	batch, err := w.service.ClassifyFile(ctx, path, out, sv, w.cfg.Threshold)
	w.service.metrics.ObserveFile(err)
	if err != nil {
		w.logger.Error("Failed to classify inbox file", err, log.SourcePathKey, path)
	} else {
		w.logger.Info("Wrote predictions",
			log.SourcePathKey, path,
			"output", out,
			log.PredsKey, len(batch.Predictions),
			log.AbstainedKey, batch.Abstained)
	}

	select {
	case w.results <- FileResult{Input: path, Output: out, Batch: batch, Err: err}:
	default:
		w.logger.Debug("Results channel full, dropping report", log.SourcePathKey, path)
	}
}

// OutputPath returns the outbox file for an inbox file.
func OutputPath(outbox, input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outbox, base+predictionsSuffix)
}

// SurveyForFile picks the survey named by the file's prefix ("tess_toi.csv",
// "k2-2024.csv"), or fallback.
func SurveyForFile(path string, fallback survey.Survey) survey.Survey {
	base := strings.ToLower(filepath.Base(path))
	for _, s := range survey.Surveys() {
		name := string(s)
		if len(base) > len(name) && strings.HasPrefix(base, name) && strings.ContainsRune("_-.", rune(base[len(name)])) {
			return s
		}
	}
	return fallback
}

func isInputFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".csv") &&
		!strings.HasSuffix(base, predictionsSuffix) &&
		!strings.HasPrefix(base, ".")
}
