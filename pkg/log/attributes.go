// Standard attribute keys for pipeline logging.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "survey.rows") so log lines can be filtered by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "LGBMClassifier", "StandardScaler", "Pipeline"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a specific fitted instance, usually the artifact UUID.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "merge", "classify"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component emitted the line.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Survey context
const (
	// SurveyKey names the source program ("kepler", "tess", "k2").
	SurveyKey = "survey.id"

	// SurveyRowsKey is the number of raw rows read from a survey table.
	SurveyRowsKey = "survey.rows"

	// SurveyUnknownDroppedKey counts rows removed because their label was UNKNOWN.
	SurveyUnknownDroppedKey = "survey.unknown_dropped"

	// SurveyLabelledKey reports whether a survey carried its disposition column.
	SurveyLabelledKey = "survey.labelled"

	// SourcePathKey is the file a table was loaded from.
	SourcePathKey = "source.path"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct labels.
	ClassesKey = "data.classes"

	// SkippedLinesKey counts malformed input lines that were skipped.
	SkippedLinesKey = "data.skipped_lines"

	// EncodingKey records the text encoding used to decode an input file.
	EncodingKey = "data.encoding"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy on the held-out partition.
	AccuracyKey = "metrics.accuracy"

	// LossKey records the training loss.
	LossKey = "metrics.loss"

	// MacroF1Key records the unweighted mean F1 over classes.
	MacroF1Key = "metrics.macro_f1"

	// IterationKey records the boosting iteration.
	IterationKey = "training.iteration"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// AbstainedKey counts predictions that fell back to UNKNOWN.
	AbstainedKey = "preds.abstained"

	// ThresholdKey records the confidence threshold used for classification.
	ThresholdKey = "preds.threshold"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// NEstimatorsKey records the number of boosting rounds.
	NEstimatorsKey = "hyperparams.n_estimators"

	// MaxDepthKey records the maximum tree depth.
	MaxDepthKey = "hyperparams.max_depth"

	// LearningRateKey records the shrinkage rate.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationMerge     = "merge"
	OperationClassify  = "classify"
	OperationRetrain   = "retrain"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
