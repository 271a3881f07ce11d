// Package cli implements the annotator command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	annotator "github.com/menta2k/roi-annotator"
	"github.com/menta2k/roi-annotator/internal/config"
	"github.com/menta2k/roi-annotator/pkg/classes"
)

// options are shared by every subcommand
type options struct {
	configPath string
	verbose    bool
	logger     *slog.Logger
}

// NewRootCmd builds the annotator command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "annotator",
		Short: "Draw, label and export bounding boxes for image datasets",
		Long: `Annotator labels rectangular regions of images with classes and exports
them as YOLO text, JSON or Parquet together with a custom.names class list.

Boxes are drawn in a line-oriented session that can be driven interactively
or from a script. Vision models served by Ollama or llama.cpp can propose boxes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(opts.logger)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.GetConfigPath(), "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newInspectCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// loadConfig reads and validates the config file with environment overrides
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", o.configPath, err)
	}
	return cfg, nil
}

// annotatorConfig maps the file config onto the library config
func annotatorConfig(cfg *config.Config, logger *slog.Logger) (annotator.Config, error) {
	ordering, err := classes.ParseOrdering(cfg.Annotator.ClassOrdering)
	if err != nil {
		return annotator.Config{}, err
	}
	return annotator.Config{
		Tolerance:     cfg.Annotator.Tolerance,
		ClassOrdering: ordering,
		Concurrency:   cfg.Export.Concurrency,
		Logger:        logger,
	}, nil
}
