package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	annotator "github.com/menta2k/roi-annotator"
	"github.com/menta2k/roi-annotator/internal/config"
	"github.com/menta2k/roi-annotator/internal/utils"
	"github.com/menta2k/roi-annotator/pkg/detection"
	"github.com/menta2k/roi-annotator/pkg/export"
	"github.com/menta2k/roi-annotator/pkg/processing"
	"github.com/menta2k/roi-annotator/pkg/sink"
	"github.com/menta2k/roi-annotator/pkg/types"
)

const shellHelp = `commands:
  list                     images with annotation counts
  current                  the image being annotated
  next | prev              move between images
  class <name>             select (and register) the class for new boxes
  classes                  registered classes with their indices
  draw <x1> <y1> <x2> <y2> add a box from pixel corners
  start <x> <y>            begin a drag
  end <x> <y>              finish the drag and add the box
  pending                  the last box drawn on this image
  delete <x> <y>           remove the first box under the point
  boxes                    annotations of this image
  suggest                  ask the vision backend for a box
  vision-test              check that the backend can see the image
  export [format] [dir]    write the dataset (yolo, json, parquet)
  preview [format]         print the dataset as text (yolo, json)
  overlay <file>           save the image with its boxes drawn
  help                     this text
  quit                     leave the session`

var errQuit = errors.New("quit")

// Shell interprets annotation commands one line at a time
type Shell struct {
	ann       *annotator.Annotator
	cfg       *config.Config
	processor *processing.Processor
	detector  *detection.Detector // nil disables suggest
	out       io.Writer
	logger    *slog.Logger
}

// NewShell creates a shell over ann writing its replies to out
func NewShell(ann *annotator.Annotator, cfg *config.Config, detector *detection.Detector, out io.Writer, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		ann:       ann,
		cfg:       cfg,
		processor: processing.NewProcessor(),
		detector:  detector,
		out:       out,
		logger:    logger,
	}
}

// Run executes every line of in until EOF or quit. Command errors are printed
// and do not stop the session.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Exec runs a single command line
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "quit", "exit":
		return errQuit
	case "list":
		s.list()
	case "current":
		img, err := s.ann.Current()
		if err != nil {
			return err
		}
		s.printImage(img)
	case "next", "prev":
		move := s.ann.Next
		if cmd == "prev" {
			move = s.ann.Previous
		}
		img, err := move()
		if err != nil {
			return err
		}
		s.printImage(img)
	case "class":
		// class names may contain spaces
		name := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		if err := s.ann.OnClassSelected(name); err != nil {
			return err
		}
		idx, _ := s.ann.Registry().IndexOf(name)
		fmt.Fprintf(s.out, "class %q (%d)\n", name, idx)
	case "classes":
		for i, name := range s.ann.Registry().Names() {
			fmt.Fprintf(s.out, "%d %s\n", i, name)
		}
	case "draw":
		pts, err := parsePoints(args, 2)
		if err != nil {
			return err
		}
		ann, err := s.ann.AddBox(pts[0], pts[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, export.YoloLine(ann))
	case "start":
		pts, err := parsePoints(args, 1)
		if err != nil {
			return err
		}
		s.ann.OnDragStart(pts[0])
	case "end":
		pts, err := parsePoints(args, 1)
		if err != nil {
			return err
		}
		ann, err := s.ann.OnDragComplete(pts[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, export.YoloLine(ann))
	case "pending":
		box, ok := s.ann.Pending()
		if !ok {
			fmt.Fprintln(s.out, "no box drawn")
			return nil
		}
		fmt.Fprintf(s.out, "%.6f %.6f %.6f %.6f\n", box.XMin, box.YMin, box.Width, box.Height)
	case "delete":
		pts, err := parsePoints(args, 1)
		if err != nil {
			return err
		}
		removed, ok, err := s.ann.OnDeleteGesture(pts[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "no box at point")
			return nil
		}
		fmt.Fprintf(s.out, "deleted %s\n", export.YoloLine(removed))
	case "boxes":
		return s.boxes()
	case "suggest":
		return s.suggest(ctx)
	case "vision-test":
		return s.visionTest(ctx)
	case "export":
		return s.export(ctx, args)
	case "preview":
		format, err := s.format(args)
		if err != nil {
			return err
		}
		text, err := s.ann.Preview(format)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, text)
	case "overlay":
		if len(args) != 1 {
			return fmt.Errorf("usage: overlay <file>")
		}
		return s.overlay(args[0])
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *Shell) printImage(img types.ImageDescriptor) {
	fmt.Fprintf(s.out, "%s %dx%d (%d/%d)\n", img.ID, img.Width, img.Height, s.ann.Session().Index()+1, s.ann.Session().Len())
}

func (s *Shell) list() {
	current := s.ann.Session().Index()
	for i, img := range s.ann.Session().Images() {
		marker := " "
		if i == current {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s %dx%d boxes=%d\n", marker, img.ID, img.Width, img.Height, len(s.ann.Store().ListFor(img.ID)))
	}
}

func (s *Shell) boxes() error {
	anns, err := s.ann.Annotations()
	if err != nil {
		return err
	}
	if len(anns) == 0 {
		fmt.Fprintln(s.out, "no boxes")
		return nil
	}
	for i, a := range anns {
		label, err := s.ann.Registry().NameAt(a.ClassIndex)
		if err != nil {
			label = "?"
		}
		fmt.Fprintf(s.out, "%d %s %s\n", i, label, export.YoloLine(a))
	}
	return nil
}

// modelImage encodes the current image the way the vision backend expects it
func (s *Shell) modelImage() (types.ImageDescriptor, string, error) {
	if s.detector == nil {
		return types.ImageDescriptor{}, "", fmt.Errorf("no vision backend configured")
	}
	img, err := s.ann.Current()
	if err != nil {
		return img, "", err
	}
	if img.Path == "" {
		return img, "", fmt.Errorf("%s has no file to send", img.ID)
	}

	decoded, err := s.processor.LoadImage(img.Path)
	if err != nil {
		return img, "", err
	}
	v := s.cfg.Vision
	b64, err := s.processor.PrepareImageForModel(decoded, v.SendFormat, v.SendSize, v.SendQuality)
	if err != nil {
		return img, "", err
	}
	return img, b64, nil
}

func (s *Shell) visionTest(ctx context.Context) error {
	img, b64, err := s.modelImage()
	if err != nil {
		return err
	}
	s.logger.Debug("Testing vision", "image", img.ID, "backend", s.cfg.Vision.Backend, "model", s.cfg.Vision.Model)
	reply, err := s.detector.TestVision(ctx, s.cfg.Vision.Model, b64)
	if err != nil {
		return fmt.Errorf("vision test failed: %w", err)
	}
	fmt.Fprintf(s.out, "model sees: %s\n", strings.TrimSpace(reply))
	return nil
}

func (s *Shell) suggest(ctx context.Context) error {
	img, b64, err := s.modelImage()
	if err != nil {
		return err
	}
	v := s.cfg.Vision

	s.logger.Debug("Requesting suggestion", "image", img.ID, "backend", v.Backend, "model", v.Model)
	suggestion, err := s.detector.Suggest(ctx, v.Model, b64, s.ann.Registry().Names())
	if err != nil {
		return err
	}
	ann, err := s.ann.ApplySuggestion(*suggestion)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "suggested %q conf=%.2f %s\n", suggestion.Label, suggestion.Confidence, export.YoloLine(ann))
	return nil
}

func (s *Shell) export(ctx context.Context, args []string) error {
	format, err := s.format(args)
	if err != nil {
		return err
	}
	dir := s.cfg.Export.OutputDir
	if len(args) > 1 {
		dir = args[1]
	}

	results, err := s.ann.ExportTo(ctx, sink.NewDirSink(dir), format)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(s.out, "nothing to export")
		return nil
	}
	failed := sink.Failed(results)
	for _, r := range failed {
		fmt.Fprintf(s.out, "failed %s: %v\n", r.Name, r.Err)
	}
	fmt.Fprintf(s.out, "wrote %d of %d files to %s\n", len(results)-len(failed), len(results), dir)
	return nil
}

func (s *Shell) overlay(path string) error {
	img, err := s.ann.Current()
	if err != nil {
		return err
	}
	if img.Path == "" {
		return fmt.Errorf("%s has no file to draw on", img.ID)
	}
	decoded, err := s.processor.LoadImage(img.Path)
	if err != nil {
		return err
	}
	anns, err := s.ann.Annotations()
	if err != nil {
		return err
	}

	o := s.cfg.Overlay
	format := o.Format
	if ext := utils.GetFileExtension(path); ext != "" {
		format = ext
	}
	if err := s.processor.SaveImage(s.processor.RenderOverlay(decoded, anns), path, format, o.Quality, o.Lossless); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	fmt.Fprintf(s.out, "wrote %s\n", path)
	return nil
}

// format reads an optional format argument, defaulting to the config
func (s *Shell) format(args []string) (export.Format, error) {
	name := s.cfg.Export.Format
	if len(args) > 0 {
		name = args[0]
	}
	return export.ParseFormat(name)
}

func parsePoints(args []string, n int) ([]types.Point, error) {
	if len(args) != 2*n {
		return nil, fmt.Errorf("expected %d coordinates, got %d", 2*n, len(args))
	}
	pts := make([]types.Point, n)
	for i := range pts {
		x, err := strconv.ParseFloat(args[2*i], 64)
		if err != nil {
			return nil, fmt.Errorf("bad x coordinate %q", args[2*i])
		}
		y, err := strconv.ParseFloat(args[2*i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad y coordinate %q", args[2*i+1])
		}
		if !finite(x) || !finite(y) {
			return nil, fmt.Errorf("coordinates must be finite, got %s %s", args[2*i], args[2*i+1])
		}
		pts[i] = types.Point{X: x, Y: y}
	}
	return pts, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
