// Package serving holds the long-lived side of the pipeline: the swappable
// model registry, prediction over uploaded tables, Prometheus metrics and the
// file-drop batch runner.
//
// Readers always see one complete artifact. Retrain builds a new artifact off
// to the side and publishes it with a single atomic pointer store, so
// predictions in flight keep using the snapshot they started with.
//
//	reg := serving.NewRegistry("models/exoplanet.gob")
//	if err := reg.Load(); err != nil { ... }
//	svc := serving.NewService(reg, []string{"kepoi_name"})
//	batch, err := svc.Predict(ctx, table, survey.Kepler, classify.DefaultThreshold)
package serving
