package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/roi-annotator/internal/utils"
	"github.com/menta2k/roi-annotator/pkg/geometry"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// palette colors boxes by class index
var palette = []color.NRGBA{
	{255, 0, 0, 255},
	{0, 200, 0, 255},
	{0, 120, 255, 255},
	{255, 204, 0, 255},
	{255, 0, 255, 255},
	{0, 220, 220, 255},
	{255, 128, 0, 255},
	{128, 0, 255, 255},
}

// Processor decodes images and renders annotation overlays
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if img, err := webp.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// Describe reads only the header of the image at path and returns its descriptor.
// The descriptor ID is the file name.
func (p *Processor) Describe(path string) (types.ImageDescriptor, error) {
	cfg, err := decodeConfig(path)
	if err != nil {
		return types.ImageDescriptor{}, err
	}
	return types.ImageDescriptor{
		ID:     filepath.Base(path),
		Width:  cfg.Width,
		Height: cfg.Height,
		Path:   path,
	}, nil
}

// DescribeDir describes every image file in dir in name order. IDs are paths
// relative to dir so they stay unique when subdirectories are included.
func (p *Processor) DescribeDir(dir string, recursive bool) ([]types.ImageDescriptor, error) {
	paths, err := utils.ListImageFiles(dir, recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to list images in %s: %w", dir, err)
	}

	descs := make([]types.ImageDescriptor, 0, len(paths))
	for _, path := range paths {
		desc, err := p.Describe(path)
		if err != nil {
			return nil, err
		}
		if rel, err := filepath.Rel(dir, path); err == nil {
			desc.ID = filepath.ToSlash(rel)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err == nil {
		return cfg, nil
	}
	if _, serr := f.Seek(0, 0); serr == nil {
		if wcfg, werr := webp.DecodeConfig(f); werr == nil {
			return wcfg, nil
		}
	}
	return image.Config{}, fmt.Errorf("failed to decode image header of %s: %w", path, err)
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// RenderOverlay draws the outline of every annotation on a copy of img.
// Boxes with negative extents are drawn over the area they cover.
func (p *Processor) RenderOverlay(img image.Image, annotations []types.Annotation) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	desc := types.ImageDescriptor{Width: w, Height: h}
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))

	for _, a := range annotations {
		r := geometry.Canon(geometry.ToPixelRect(a.Box, desc))
		drawRect(nrgba, r, ColorFor(a.ClassIndex), stroke)
	}
	return nrgba
}

// ColorFor returns the overlay color of a class index.
func ColorFor(classIndex int) color.NRGBA {
	if classIndex < 0 {
		classIndex = -classIndex
	}
	return palette[classIndex%len(palette)]
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func drawRect(img *image.NRGBA, r types.Rect, c color.NRGBA, stroke int) {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.W))
	y1 := int(math.Round(r.Y + r.H))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
