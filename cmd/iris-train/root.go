package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/irisforest/pipeline"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/YuminosukeSato/irisforest/pkg/log"
)

func newRootCmd() *cobra.Command {
	defaults := pipeline.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "iris-train",
		Short:         "Train a random forest on the iris dataset and save it",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			level, format := cfg.LogSettings()
			if err := log.SetupLogger(level, format, cmd.ErrOrStderr()); err != nil {
				return err
			}
			_, err = pipeline.Run(cfg, cmd.OutOrStdout())
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "JSON file overriding the default run parameters")
	flags.String("output", defaults.OutputPath, "path of the saved model")
	flags.Float64("test-size", defaults.TestSize, "fraction of samples held out for testing")
	flags.Int64("seed", defaults.RandomSeed, "random seed for the split and the forest")
	flags.Int("n-estimators", defaults.NEstimators, "number of trees")
	flags.Int("n-jobs", defaults.NJobs, "goroutines used to fit trees (0 = all CPUs)")
	flags.String("plot", "", "write a feature importance chart to this path (.png, .svg, .pdf)")
	flags.String("log-level", defaults.LogLevel, "debug, info, warn or error")
	flags.String("log-format", defaults.LogFormat, "console or json")

	return cmd
}

// resolveConfig starts from the defaults or --config, then applies only the
// flags given on the command line.
func resolveConfig(cmd *cobra.Command) (pipeline.Config, error) {
	flags := cmd.Flags()
	cfg := pipeline.DefaultConfig()

	configPath, err := flags.GetString("config")
	if err != nil {
		return cfg, errors.WithStack(err)
	}
	if configPath != "" {
		if cfg, err = pipeline.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}

	var errs []error
	set := func(name string, apply func() error) {
		if flags.Changed(name) {
			errs = append(errs, apply())
		}
	}
	set("output", func() (err error) { cfg.OutputPath, err = flags.GetString("output"); return })
	set("test-size", func() (err error) { cfg.TestSize, err = flags.GetFloat64("test-size"); return })
	set("seed", func() (err error) { cfg.RandomSeed, err = flags.GetInt64("seed"); return })
	set("n-estimators", func() (err error) { cfg.NEstimators, err = flags.GetInt("n-estimators"); return })
	set("n-jobs", func() (err error) { cfg.NJobs, err = flags.GetInt("n-jobs"); return })
	set("plot", func() (err error) { cfg.PlotPath, err = flags.GetString("plot"); return })
	set("log-level", func() (err error) { cfg.LogLevel, err = flags.GetString("log-level"); return })
	set("log-format", func() (err error) { cfg.LogFormat, err = flags.GetString("log-format"); return })
	for _, err := range errs {
		if err != nil {
			return cfg, errors.WithStack(err)
		}
	}
	return cfg, cfg.Validate()
}
