// Package exoplanet classifies transiting-exoplanet candidates from the
// Kepler, TESS and K2 survey tables as CONFIRMED, CANDIDATE or
// FALSE POSITIVE, abstaining with UNKNOWN when the model is not confident.
//
// # Pipeline
//
//   - survey: unified feature and label vocabulary, per-survey column aliases
//   - dataset: CSV loading, cross-survey merge with per-source median
//     imputation, prediction output
//   - training: stratified 80/20 split, class-balanced sample weights,
//     scaler + gradient boosted trees, classification report, artifacts
//   - classify: reject-option decision over predicted probabilities
//   - serving: hot-swappable model registry, upload prediction, Prometheus
//     metrics, inbox watcher
//   - runstore: sqlite ledger of training runs
//   - config: YAML configuration
//
// The numeric building blocks live in preprocessing, metrics, core/model
// and sklearn/{lightgbm, model_selection, pipeline, utils}.
//
// # Quick Start
//
//	table, _, err := dataset.LoadCSV("data/KeplerObjectsInterest.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	merged, err := dataset.Merge([]dataset.Source{{Table: table, Survey: survey.Kepler}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := training.Train(merged, training.DefaultHyperparameters())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report)
//
//	decisions, err := classify.ClassifyFrame(result.Pipeline, result.Codec, frame, classify.DefaultThreshold)
//
// The exoplanet command wraps the same steps: "exoplanet train",
// "exoplanet classify", "exoplanet watch".
package exoplanet
