package pipeline

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/YuminosukeSato/irisforest/pkg/log"
)

// Config holds the parameters of one train/evaluate/save run.
type Config struct {
	// OutputPath is where the fitted model is written. Its directory must exist.
	OutputPath string `json:"output_path"`
	// TestSize is the held-out fraction, in (0, 1).
	TestSize float64 `json:"test_size"`
	// RandomSeed seeds both the split and the forest.
	RandomSeed  int64 `json:"random_seed"`
	NEstimators int   `json:"n_estimators"`
	// NJobs bounds tree-fitting goroutines; 0 uses every CPU.
	NJobs int `json:"n_jobs"`
	// PlotPath, when set, receives a feature importance chart.
	PlotPath string `json:"plot_path,omitempty"`

	// LogLevel and LogFormat configure the CLI logger; Run ignores them.
	// Empty means the DefaultConfig value.
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// DefaultConfig returns the fixed parameters of the iris training job.
func DefaultConfig() Config {
	return Config{
		OutputPath:  "models/iris_model.pkl",
		TestSize:    0.2,
		RandomSeed:  42,
		NEstimators: 100,
		LogLevel:    "warn",
		LogFormat:   log.FormatConsole,
	}
}

// LogSettings returns the log level and format, with empty fields
// replaced by their DefaultConfig values.
func (c Config) LogSettings() (level, format string) {
	d := DefaultConfig()
	level, format = c.LogLevel, c.LogFormat
	if level == "" {
		level = d.LogLevel
	}
	if format == "" {
		format = d.LogFormat
	}
	return level, format
}

// LoadConfig reads a JSON file and overlays it on DefaultConfig.
// Keys absent from the file keep their defaults; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(
			errors.NewValidationError("config", "invalid JSON", path), "%v", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid field as a ValidationError.
func (c Config) Validate() error {
	if c.OutputPath == "" {
		return errors.NewValidationError("output_path", "must not be empty", c.OutputPath)
	}
	if err := errors.CheckScalar("Config.Validate", c.TestSize, 0); err != nil {
		return err
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", c.NEstimators)
	}
	if c.NJobs < 0 {
		return errors.NewValidationError("n_jobs", "must be >= 0", c.NJobs)
	}
	if c.LogLevel != "" {
		if _, err := log.ToLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.LogFormat != "" && c.LogFormat != log.FormatJSON && c.LogFormat != log.FormatConsole {
		return errors.NewValidationError("log_format", "must be json or console", c.LogFormat)
	}
	return nil
}
