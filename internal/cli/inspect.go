package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/roi-annotator/internal/utils"
	"github.com/menta2k/roi-annotator/pkg/processing"
)

func newInspectCmd(opts *options) *cobra.Command {
	var recursive bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <dir>",
		Short: "List the images of a directory with their dimensions",
		Example: `  # Show the images a session would load
  annotator inspect ./photos

  # Include subdirectories and print JSON descriptors
  annotator inspect ./photos --recursive --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if !utils.DirExists(dir) {
				return fmt.Errorf("directory not found: %s", dir)
			}

			descs, err := processing.NewProcessor().DescribeDir(dir, recursive)
			if err != nil {
				return err
			}
			opts.logger.Debug("Described images", "dir", dir, "count", len(descs))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(descs)
			}
			for _, d := range descs {
				fmt.Fprintf(out, "%s\t%dx%d\n", d.ID, d.Width, d.Height)
			}
			fmt.Fprintf(out, "%d images\n", len(descs))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Include images in subdirectories")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors as JSON")

	return cmd
}
