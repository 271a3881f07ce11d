package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	annotator "github.com/menta2k/roi-annotator"
	"github.com/menta2k/roi-annotator/internal/config"
	"github.com/menta2k/roi-annotator/pkg/client"
	"github.com/menta2k/roi-annotator/pkg/detection"
	"github.com/menta2k/roi-annotator/pkg/llamacpp"
	"github.com/menta2k/roi-annotator/pkg/ollama"
	"github.com/menta2k/roi-annotator/pkg/processing"
	"github.com/menta2k/roi-annotator/pkg/vision"
)

func newSessionCmd(opts *options) *cobra.Command {
	var script string
	var recursive bool
	var noVision bool

	cmd := &cobra.Command{
		Use:   "session <dir>",
		Short: "Annotate the images of a directory",
		Long: `Load every image of a directory and read annotation commands from stdin
or a script file. Type "help" inside the session for the command list.

Nothing is saved automatically: run "export" before leaving.`,
		Example: `  # Interactive session
  annotator session ./photos

  # Replay a script and export to ./labels
  annotator session ./photos --script boxes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			descs, err := processing.NewProcessor().DescribeDir(args[0], recursive)
			if err != nil {
				return err
			}
			if len(descs) == 0 {
				return fmt.Errorf("no images found in %s", args[0])
			}

			annCfg, err := annotatorConfig(cfg, opts.logger)
			if err != nil {
				return err
			}
			ann := annotator.NewWithConfig(annCfg)
			if err := ann.LoadImages(descs); err != nil {
				return err
			}
			for _, name := range cfg.Annotator.Classes {
				if err := ann.Registry().Register(name); err != nil {
					return fmt.Errorf("annotator.classes: %w", err)
				}
			}

			var detector *detection.Detector
			if !noVision {
				vc, err := newVisionClient(cfg.Vision)
				if err != nil {
					return err
				}
				detector = detection.NewDetector(vc)
			}

			var in io.Reader = cmd.InOrStdin()
			if script != "" {
				f, err := os.Open(script)
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				in = f
			}

			shell := NewShell(ann, cfg, detector, cmd.OutOrStdout(), opts.logger)
			return shell.Run(cmd.Context(), in)
		},
	}

	cmd.Flags().StringVarP(&script, "script", "s", "", "Read commands from a file instead of stdin")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Include images in subdirectories")
	cmd.Flags().BoolVar(&noVision, "no-vision", false, "Disable the suggest command")

	return cmd
}

// newVisionClient creates the suggestion backend named in the config
func newVisionClient(cfg config.VisionConfig) (client.VisionClient, error) {
	switch cfg.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	case "saliency":
		return vision.NewClient(vision.DefaultLabel), nil
	default:
		return nil, fmt.Errorf("unknown vision backend: %s (use ollama, llamacpp or saliency)", cfg.Backend)
	}
}
