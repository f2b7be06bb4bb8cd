// Package pipeline runs the iris training job: load the dataset, split it,
// fit a random forest, report test accuracy and persist the model.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/core/model"
	"github.com/YuminosukeSato/irisforest/datasets"
	"github.com/YuminosukeSato/irisforest/metrics"
	"github.com/YuminosukeSato/irisforest/model_selection"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/YuminosukeSato/irisforest/pkg/log"
	"github.com/YuminosukeSato/irisforest/sklearn/ensemble"
	"github.com/YuminosukeSato/irisforest/viz"
)

// Result summarizes a completed run.
type Result struct {
	Accuracy     float64
	ModelPath    string
	TrainSamples int
	TestSamples  int
	// FeatureNames and FeatureImportances are aligned by index.
	FeatureNames       []string
	FeatureImportances []float64
	Model              *ensemble.RandomForestClassifier
}

// Run executes the job and writes exactly two lines to stdout:
//
//	Model Accuracy: 90.00%
//	Model saved to models/iris_model.pkl
//
// Output directories are checked before anything is printed, so a missing
// directory fails with an error satisfying errors.Is(err, fs.ErrNotExist)
// and no accuracy line.
func Run(cfg Config, stdout io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLogger().With(log.ComponentKey, "pipeline")
	start := time.Now()

	if err := requireDir(cfg.OutputPath); err != nil {
		return nil, errors.Wrap(err, "save model")
	}
	if cfg.PlotPath != "" {
		if err := requireDir(cfg.PlotPath); err != nil {
			return nil, errors.Wrap(err, "save plot")
		}
	}

	iris, err := datasets.LoadIris()
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	logger.Debug("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SamplesKey, iris.NSamples(),
		log.FeaturesKey, iris.NFeatures(),
	)

	split, err := model_selection.TrainTestSplit(iris.X, iris.Y,
		model_selection.WithTestSize(cfg.TestSize),
		model_selection.WithRandomState(cfg.RandomSeed),
	)
	if err != nil {
		return nil, errors.Wrap(err, "split dataset")
	}
	logger.Debug("Dataset split",
		log.OperationKey, log.OperationSplit,
		log.TrainSamplesKey, len(split.TrainIndices),
		log.TestSamplesKey, len(split.TestIndices),
		log.TestSizeKey, cfg.TestSize,
		log.RandomSeedKey, cfg.RandomSeed,
	)

	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(cfg.NEstimators),
		ensemble.WithRandomState(cfg.RandomSeed),
		ensemble.WithNJobs(cfg.NJobs),
		ensemble.WithLogger(logger),
	)
	if err := rf.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrap(err, "fit model")
	}

	accuracy, err := evaluate(rf, split.XTest, split.YTest)
	if err != nil {
		return nil, err
	}
	logger.Info("Model evaluated",
		log.OperationKey, log.OperationScore,
		log.PhaseKey, log.PhaseTesting,
		log.PredsKey, len(split.TestIndices),
		log.AccuracyKey, accuracy,
	)
	if _, err := fmt.Fprintf(stdout, "Model Accuracy: %.2f%%\n", accuracy*100); err != nil {
		return nil, errors.Wrap(err, "write accuracy")
	}

	if err := model.SaveModel(rf, cfg.OutputPath); err != nil {
		return nil, errors.Wrap(err, "save model")
	}
	logger.Info("Model saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, cfg.OutputPath,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	if _, err := fmt.Fprintf(stdout, "Model saved to %s\n", cfg.OutputPath); err != nil {
		return nil, errors.Wrap(err, "write save message")
	}

	importances := rf.GetFeatureImportances()
	if cfg.PlotPath != "" {
		if err := viz.FeatureImportancePlot(iris.FeatureNames, importances, cfg.PlotPath); err != nil {
			return nil, errors.Wrap(err, "save plot")
		}
		logger.Info("Feature importance plot saved", log.PathKey, cfg.PlotPath)
	}

	return &Result{
		Accuracy:           accuracy,
		ModelPath:          cfg.OutputPath,
		TrainSamples:       len(split.TrainIndices),
		TestSamples:        len(split.TestIndices),
		FeatureNames:       iris.FeatureNames,
		FeatureImportances: importances,
		Model:              rf,
	}, nil
}

// evaluate returns the fraction of test labels clf predicts exactly.
func evaluate(clf model.Predictor, X, y mat.Matrix) (float64, error) {
	predictions, err := clf.Predict(X)
	if err != nil {
		return 0, errors.Wrap(err, "predict test set")
	}
	accuracy, err := metrics.AccuracyMatrix(y, predictions)
	if err != nil {
		return 0, errors.Wrap(err, "score test set")
	}
	return accuracy, nil
}

// LoadModel reads a forest written by Run.
func LoadModel(path string) (*ensemble.RandomForestClassifier, error) {
	var rf ensemble.RandomForestClassifier
	if err := model.LoadModel(&rf, path); err != nil {
		return nil, err
	}
	return &rf, nil
}

// requireDir checks that the directory that will hold path exists.
func requireDir(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewModelError("Run", "output directory "+dir+" is not accessible", err)
	}
	if !info.IsDir() {
		return errors.NewValueError("Run", dir+" is not a directory")
	}
	return nil
}
