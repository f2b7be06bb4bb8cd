package main

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestRootCmdDefaultRun(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.Mkdir("models", 0o755))

	stdout, _, err := execute(t)
	require.NoError(t, err)

	assert.Equal(t, "Model Accuracy: 90.00%\nModel saved to models/iris_model.pkl\n", stdout)
	_, err = os.Stat(filepath.Join(dir, "models", "iris_model.pkl"))
	assert.NoError(t, err)
}

func TestRootCmdMissingModelsDir(t *testing.T) {
	chdir(t, t.TempDir())

	stdout, _, err := execute(t)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.NotContains(t, stdout, "Model Accuracy")
}

func TestRootCmdFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	output := filepath.Join(dir, "forest.pkl")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"n_estimators": 5, "test_size": 0.3}`), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", configPath, "--output", output, "--seed", "7"}))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NEstimators)
	assert.Equal(t, 0.3, cfg.TestSize)
	assert.Equal(t, output, cfg.OutputPath)
	assert.Equal(t, int64(7), cfg.RandomSeed)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestRootCmdJSONLogsGoToStderr(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "forest.pkl")

	stdout, stderr, err := execute(t, "--output", output, "--n-estimators", "5", "--log-level", "info", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Model saved to "+output)
	assert.NotContains(t, stdout, "severity")
	assert.Contains(t, stderr, `"severity":"INFO"`)
	assert.Contains(t, stderr, "Training completed")
}

func TestRootCmdRejectsInvalidInput(t *testing.T) {
	_, _, err := execute(t, "--test-size", "2")
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, _, err = execute(t, "extra-arg")
	assert.Error(t, err)
}
