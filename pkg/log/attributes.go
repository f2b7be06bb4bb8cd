// Package log defines standard attribute keys for machine learning operations.
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") so records from the dataset loader, the splitter and the
// estimators can be filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "DecisionTreeClassifier", "RandomForestClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "score", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "datasets", "model_selection", "ensemble", "pipeline"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct class labels.
	ClassesKey = "data.classes"

	// TrainSamplesKey and TestSamplesKey record the partition sizes of a split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	// Range [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// OOBScoreKey records the out-of-bag accuracy of a bagged ensemble.
	OOBScoreKey = "metrics.oob_score"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// PathKey records a file system path read or written by the operation.
	PathKey = "io.path"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// NEstimatorsKey records the number of trees in an ensemble.
	NEstimatorsKey = "hyperparams.n_estimators"

	// TestSizeKey records the held-out fraction of a train/test split.
	TestSizeKey = "hyperparams.test_size"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Infrastructure
const (
	// WorkerIDKey identifies the goroutine slot that built a tree.
	WorkerIDKey = "infra.worker_id"
)

// Standard attribute value constants for common operations.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSplit   = "split"
	OperationLoad    = "load"
	OperationSave    = "save"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
)
