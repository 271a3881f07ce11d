package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	annotator "github.com/menta2k/roi-annotator"
	"github.com/menta2k/roi-annotator/internal/config"
	"github.com/menta2k/roi-annotator/pkg/detection"
	"github.com/menta2k/roi-annotator/pkg/processing"
	"github.com/menta2k/roi-annotator/pkg/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// imageDir holds a.png (800x600) and b.png (400x200)
func imageDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 800, 600)
	writePNG(t, filepath.Join(dir, "b.png"), 400, 200)
	return dir
}

func newTestShell(t *testing.T, detector *detection.Detector) (*Shell, *bytes.Buffer) {
	t.Helper()
	descs, err := processing.NewProcessor().DescribeDir(imageDir(t), false)
	if err != nil {
		t.Fatalf("DescribeDir failed: %v", err)
	}
	cfg := annotator.DefaultConfig()
	cfg.Logger = discard
	ann := annotator.NewWithConfig(cfg)
	if err := ann.LoadImages(descs); err != nil {
		t.Fatalf("LoadImages failed: %v", err)
	}
	var out bytes.Buffer
	return NewShell(ann, config.Default(), detector, &out, discard), &out
}

func TestShellScript(t *testing.T) {
	shell, out := newTestShell(t, nil)
	exportDir := filepath.Join(t.TempDir(), "labels")

	script := strings.Join([]string{
		"# comments and blank lines are skipped",
		"",
		"draw 1 1 2 2",
		"class cat",
		"draw 100 100 300 400",
		"pending",
		"next",
		"class dog",
		"start 10 10",
		"end 50 50",
		"boxes",
		"list",
		"preview yolo",
		"export yolo " + exportDir,
		"delete 20 20",
		"delete 300 150",
		"bogus",
		"quit",
		"class never",
	}, "\n")

	if err := shell.Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"error: no class selected",
		`class "cat" (0)`,
		"0 0.250000 0.416667 0.250000 0.500000",
		"0.125000 0.166667 0.250000 0.500000",
		"b.png 400x200 (2/2)",
		`class "dog" (1)`,
		"1 0.075000 0.150000 0.100000 0.200000",
		"0 dog 1 0.075000",
		"  a.png 800x600 boxes=1",
		"* b.png 400x200 boxes=1",
		"# a.png\n0 0.250000 0.416667 0.250000 0.500000",
		"wrote 3 of 3 files to " + exportDir,
		"deleted 1 0.075000",
		"no box at point",
		`error: unknown command "bogus"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "never") {
		t.Error("commands after quit were executed")
	}

	data, err := os.ReadFile(filepath.Join(exportDir, "a.txt"))
	if err != nil {
		t.Fatalf("a.txt not written: %v", err)
	}
	if string(data) != "0 0.250000 0.416667 0.250000 0.500000\n" {
		t.Errorf("Unexpected a.txt %q", data)
	}
	names, err := os.ReadFile(filepath.Join(exportDir, "custom.names"))
	if err != nil {
		t.Fatalf("custom.names not written: %v", err)
	}
	if string(names) != "cat\ndog" {
		t.Errorf("Unexpected custom.names %q", names)
	}
}

func TestShellExportNothing(t *testing.T) {
	shell, out := newTestShell(t, nil)
	dir := filepath.Join(t.TempDir(), "empty")

	if err := shell.Exec(context.Background(), "export json "+dir); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out.String(), "nothing to export") {
		t.Errorf("Unexpected output %q", out.String())
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected no output directory for an empty export")
	}
}

func TestShellArgumentErrors(t *testing.T) {
	shell, _ := newTestShell(t, nil)
	ctx := context.Background()

	for _, line := range []string{
		"draw 1 2 3",
		"start x 1",
		"delete 1",
		"preview parquet",
		"export xml",
		"overlay",
		"suggest",
		"vision-test",
		"draw nan 0 1 1",
		"draw 0 0 inf 1",
		"start -Inf 2",
	} {
		if err := shell.Exec(ctx, line); err == nil {
			t.Errorf("Expected error for %q", line)
		}
	}
}

type stubClient struct{}

func (stubClient) SimpleQuery(context.Context, string, string, string) (string, error) {
	return "a bird", nil
}

func (stubClient) SuggestRegion(context.Context, string, string, string) (*types.Suggestion, error) {
	return &types.Suggestion{
		Label:      "Bird",
		Confidence: 0.5,
		Box:        types.Box{XMin: 0.1, YMin: 0.1, Width: 0.2, Height: 0.2},
	}, nil
}

func TestShellSuggest(t *testing.T) {
	shell, out := newTestShell(t, detection.NewDetector(stubClient{}))

	if err := shell.Run(context.Background(), strings.NewReader("suggest\nclasses\nboxes\n")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		`suggested "bird" conf=0.50 0 0.200000 0.200000 0.200000 0.200000`,
		"0 bird\n",
		"0 bird 0 0.200000",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestShellVisionTest(t *testing.T) {
	shell, out := newTestShell(t, detection.NewDetector(stubClient{}))

	if err := shell.Exec(context.Background(), "vision-test"); err != nil {
		t.Fatalf("vision-test failed: %v", err)
	}
	if !strings.Contains(out.String(), "model sees: a bird") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestShellOverlay(t *testing.T) {
	shell, out := newTestShell(t, nil)
	path := filepath.Join(t.TempDir(), "overlay.jpg")

	script := "class cat\ndraw 10 10 200 200\noverlay " + path + "\n"
	if err := shell.Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "wrote "+path) {
		t.Errorf("Unexpected output %q", out.String())
	}
	img, err := processing.NewProcessor().LoadImage(path)
	if err != nil {
		t.Fatalf("overlay not readable: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("Expected 800x600 overlay, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestParsePoints(t *testing.T) {
	pts, err := parsePoints([]string{"1.5", "-2", "3", "4"}, 2)
	if err != nil {
		t.Fatalf("parsePoints failed: %v", err)
	}
	if pts[0] != (types.Point{X: 1.5, Y: -2}) || pts[1] != (types.Point{X: 3, Y: 4}) {
		t.Errorf("Unexpected points %+v", pts)
	}

	for _, args := range [][]string{{"nan", "0"}, {"0", "+Inf"}, {"1e400", "0"}} {
		if _, err := parsePoints(args, 1); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}
