package pipeline

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/YuminosukeSato/irisforest/pkg/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "models/iris_model.pkl", cfg.OutputPath)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, 100, cfg.NEstimators)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"n_estimators": 25, "log_format": "json"}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.NEstimators)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, int64(42), cfg.RandomSeed)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "absent.json"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"learning_rate": 0.1}`), 0o644))
	_, err = LoadConfig(unknown)
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"test_size": 0}`), 0o644))
	_, err = LoadConfig(invalid)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "test_size", vErr.ParamName)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty output", func(c *Config) { c.OutputPath = "" }},
		{"zero test size", func(c *Config) { c.TestSize = 0 }},
		{"zero trees", func(c *Config) { c.NEstimators = 0 }},
		{"negative jobs", func(c *Config) { c.NJobs = -1 }},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			var vErr *errors.ValidationError
			assert.True(t, errors.As(cfg.Validate(), &vErr))
		})
	}

	cfg := DefaultConfig()
	cfg.TestSize = math.NaN()
	var numErr *errors.NumericalInstabilityError
	assert.True(t, errors.As(cfg.Validate(), &numErr))
}

func TestConfigEmptyLogSettingsUseDefaults(t *testing.T) {
	cfg := Config{
		OutputPath:  "models/iris_model.pkl",
		TestSize:    0.2,
		RandomSeed:  42,
		NEstimators: 10,
	}
	require.NoError(t, cfg.Validate())

	level, format := cfg.LogSettings()
	assert.Equal(t, "warn", level)
	assert.Equal(t, log.FormatConsole, format)

	cfg.LogLevel, cfg.LogFormat = "debug", log.FormatJSON
	level, format = cfg.LogSettings()
	assert.Equal(t, "debug", level)
	assert.Equal(t, log.FormatJSON, format)
}
