// Package model provides the estimator contracts, fitted-state tracking and
// gob persistence shared by the tree and ensemble classifiers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is implemented by models that learn from labeled samples.
// X is (n_samples, n_features); y is (n_samples, 1) holding integer labels.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor は (n_samples, 1) の予測ラベルを返すモデル
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a Fitter and Predictor whose fitted state can be queried.
// Predict before Fit returns an errors.NotFittedError.
type Estimator interface {
	Fitter
	Predictor
	IsFitted() bool
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator

	// PredictProba returns probability estimates for each class.
	// Columns follow the order of Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Score returns the mean accuracy on the given test data and labels.
	// Unfitted models and mismatched inputs score 0.
	Score(X, y mat.Matrix) float64

	// Classes returns the class labels seen during fitting.
	Classes() []int
}

// ImportanceReporter is implemented by models that rank their input features.
type ImportanceReporter interface {
	// GetFeatureImportances returns one non-negative weight per feature, summing to 1.
	GetFeatureImportances() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}
