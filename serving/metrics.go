package serving

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/exoplanet/classify"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/sklearn/drift"
)

const metricsNamespace = "exoplanet"

// Metrics are the Prometheus collectors of a serving process. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	decisions   *prometheus.CounterVec
	abstentions prometheus.Counter
	retrains    *prometheus.CounterVec
	files       *prometheus.CounterVec
	drift       *prometheus.CounterVec
	latency     prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decisions_total",
			Help:      "Classified rows by predicted disposition.",
		}, []string{"disposition"}),
		abstentions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "abstentions_total",
			Help:      "Rows whose top-class probability fell below the threshold.",
		}),
		retrains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retrains_total",
			Help:      "Retrain attempts by outcome.",
		}, []string{"status"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_processed_total",
			Help:      "Inbox files processed by outcome.",
		}, []string{"status"}),
		drift: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "abstention_drift_total",
			Help:      "Warning and drift verdicts of the abstention-rate monitor.",
		}, []string{"state"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "predict_duration_seconds",
			Help:      "Time to classify one uploaded table.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.decisions, m.abstentions, m.retrains, m.files, m.drift, m.latency)
	return m
}

// Registry returns the Prometheus registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDecisions counts one classified batch.
func (m *Metrics) ObserveDecisions(decisions []classify.Decision, elapsed time.Duration) {
	if m == nil {
		return
	}
	for _, d := range decisions {
		m.decisions.WithLabelValues(d.Label.String()).Inc()
		if d.Abstained() {
			m.abstentions.Inc()
		}
	}
	m.latency.Observe(elapsed.Seconds())
}

// ObserveRetrain counts one retrain attempt.
func (m *Metrics) ObserveRetrain(err error) {
	if m == nil {
		return
	}
	m.retrains.WithLabelValues(status(err)).Inc()
}

// ObserveFile counts one inbox file.
func (m *Metrics) ObserveFile(err error) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(status(err)).Inc()
}

// ObserveDrift counts non-stable monitor verdicts.
func (m *Metrics) ObserveDrift(state drift.State) {
	if m == nil || state == drift.Stable {
		return
	}
	m.drift.WithLabelValues(state.String()).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.GetLoggerWithName("serving.metrics").Info("Serving metrics", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "metrics server failed")
	}
}
