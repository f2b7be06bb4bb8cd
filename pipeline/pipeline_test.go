package pipeline

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/datasets"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

var outputPattern = regexp.MustCompile(`^Model Accuracy: (\d+\.\d{2})%\nModel saved to (.+)\n$`)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutputPath = filepath.Join(t.TempDir(), "iris_model.pkl")
	return cfg
}

func TestRunPrintsAccuracyAndSavesModel(t *testing.T) {
	cfg := testConfig(t)

	var stdout bytes.Buffer
	res, err := Run(cfg, &stdout)
	require.NoError(t, err)

	m := outputPattern.FindStringSubmatch(stdout.String())
	require.NotNil(t, m, "unexpected output %q", stdout.String())
	assert.Equal(t, cfg.OutputPath, m[2])

	printed, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	assert.InDelta(t, res.Accuracy*100, printed, 0.005)

	assert.GreaterOrEqual(t, res.Accuracy, 0.0)
	assert.LessOrEqual(t, res.Accuracy, 1.0)
	assert.GreaterOrEqual(t, res.Accuracy, 0.9)
	assert.Equal(t, 120, res.TrainSamples)
	assert.Equal(t, 30, res.TestSamples)
	assert.Len(t, res.Model.Estimators(), 100)

	info, err := os.Stat(cfg.OutputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testConfig(t)

	var first, second bytes.Buffer
	_, err := Run(cfg, &first)
	require.NoError(t, err)
	_, err = Run(cfg, &second)
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
}

func TestRunSavedModelPredictsIdentically(t *testing.T) {
	cfg := testConfig(t)

	res, err := Run(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	loaded, err := LoadModel(cfg.OutputPath)
	require.NoError(t, err)

	iris, err := datasets.LoadIris()
	require.NoError(t, err)

	want, err := res.Model.Predict(iris.X)
	require.NoError(t, err)
	got, err := loaded.Predict(iris.X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestRunMissingOutputDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputPath = filepath.Join(t.TempDir(), "models", "iris_model.pkl")

	var stdout bytes.Buffer
	_, err := Run(cfg, &stdout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Empty(t, stdout.String())

	_, statErr := os.Stat(cfg.OutputPath)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestRunOutputParentIsFile(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "models")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o644))

	cfg := DefaultConfig()
	cfg.OutputPath = filepath.Join(parent, "iris_model.pkl")

	var stdout bytes.Buffer
	_, err := Run(cfg, &stdout)
	require.Error(t, err)
	assert.Empty(t, stdout.String())
}

func TestRunWritesPlot(t *testing.T) {
	cfg := testConfig(t)
	cfg.NEstimators = 10
	cfg.PlotPath = filepath.Join(t.TempDir(), "importances.png")

	var stdout bytes.Buffer
	res, err := Run(cfg, &stdout)
	require.NoError(t, err)
	assert.Regexp(t, outputPattern, stdout.String())
	assert.Len(t, res.FeatureImportances, len(res.FeatureNames))

	_, err = os.Stat(cfg.PlotPath)
	assert.NoError(t, err)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestSize = 1.5

	var stdout bytes.Buffer
	_, err := Run(cfg, &stdout)
	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "test_size", vErr.ParamName)
	assert.Empty(t, stdout.String())
}
