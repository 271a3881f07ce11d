package vision

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/roi-annotator/pkg/types"
)

// SubjectDetector finds salient regions of an image without a model
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	Threshold        float64 // minimum mean saliency of a region
	EdgeWeight       float64
	BrightnessWeight float64
	MinSubjectRatio  float64 // minimum region area relative to the image
	MaxRegions       int
	WorkSize         int // images are downscaled to fit WorkSize before scanning
}

// DefaultDetectionConfig returns the tuning used by New
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		Threshold:        0.01,
		EdgeWeight:       0.3,
		BrightnessWeight: 0.2,
		MinSubjectRatio:  0.05,
		MaxRegions:       10,
		WorkSize:         256,
	}
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{config: DefaultDetectionConfig()}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	return &SubjectDetector{config: config}
}

// Region is a rectangle of interest in pixel coordinates of the scanned image
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Normalize converts the region to a box relative to an image of w x h pixels
func (r Region) Normalize(w, h int) types.Box {
	return types.Box{
		XMin:   float64(r.X) / float64(w),
		YMin:   float64(r.Y) / float64(h),
		Width:  float64(r.Width) / float64(w),
		Height: float64(r.Height) / float64(h),
	}
}

// DetectSubjects returns salient regions of img ordered by descending score.
// Coordinates are in img's pixel space.
func (d *SubjectDetector) DetectSubjects(img image.Image) []Region {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}

	var work *image.NRGBA
	if d.config.WorkSize > 0 && (b.Dx() > d.config.WorkSize || b.Dy() > d.config.WorkSize) {
		work = imaging.Fit(img, d.config.WorkSize, d.config.WorkSize, imaging.Box)
	} else {
		work = imaging.Clone(img)
	}
	scaleX := float64(b.Dx()) / float64(work.Bounds().Dx())
	scaleY := float64(b.Dy()) / float64(work.Bounds().Dy())

	saliency := d.saliencyMap(work)
	regions := d.filterRegions(d.scanWindows(saliency), work.Bounds().Dx(), work.Bounds().Dy())

	if d.config.MaxRegions > 0 && len(regions) > d.config.MaxRegions {
		regions = regions[:d.config.MaxRegions]
	}
	for i := range regions {
		regions[i].X = int(math.Round(float64(regions[i].X) * scaleX))
		regions[i].Y = int(math.Round(float64(regions[i].Y) * scaleY))
		regions[i].Width = int(math.Round(float64(regions[i].Width) * scaleX))
		regions[i].Height = int(math.Round(float64(regions[i].Height) * scaleY))
	}
	return regions
}

// Best returns the highest scoring region of img
func (d *SubjectDetector) Best(img image.Image) (Region, bool) {
	regions := d.DetectSubjects(img)
	if len(regions) == 0 {
		return Region{}, false
	}
	return regions[0], true
}

// MaxScore is the score of a region that is saturated in every term
func (d *SubjectDetector) MaxScore() float64 {
	return d.config.EdgeWeight*math.Sqrt(3) + d.config.BrightnessWeight
}

// saliencyMap combines local color contrast and brightness per pixel.
// The one-pixel border stays zero.
func (d *SubjectDetector) saliencyMap(img *image.NRGBA) [][]float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([][]float64, h)
	for i := range out {
		out[i] = make([]float64, w)
	}

	at := func(x, y int) (float64, float64, float64) {
		i := y*img.Stride + x*4
		return float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			r1, g1, b1 := at(x, y)

			var edge float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					r2, g2, b2 := at(x+dx, y+dy)
					dr, dg, db := r1-r2, g1-g2, b1-b2
					edge += math.Sqrt(dr*dr + dg*dg + db*db)
				}
			}
			edge /= 8 * 255

			brightness := (r1 + g1 + b1) / (3 * 255)
			out[y][x] = d.config.EdgeWeight*edge + d.config.BrightnessWeight*brightness
		}
	}
	return out
}

func (d *SubjectDetector) scanWindows(saliency [][]float64) []Region {
	h := len(saliency)
	if h == 0 {
		return nil
	}
	w := len(saliency[0])

	var regions []Region
	for _, size := range []int{w / 20, w / 16, w / 12, w / 8, w / 4} {
		if size < 10 {
			continue
		}
		step := size / 8
		for y := 0; y <= h-size; y += step {
			for x := 0; x <= w-size; x += step {
				score := meanScore(saliency, x, y, size, size)
				if score > d.config.Threshold {
					regions = append(regions, Region{X: x, Y: y, Width: size, Height: size, Score: score})
				}
			}
		}
	}
	return regions
}

func meanScore(saliency [][]float64, x, y, w, h int) float64 {
	var total float64
	count := 0
	for ry := y; ry < y+h && ry < len(saliency); ry++ {
		for rx := x; rx < x+w && rx < len(saliency[ry]); rx++ {
			total += saliency[ry][rx]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func (d *SubjectDetector) filterRegions(regions []Region, w, h int) []Region {
	minArea := int(float64(w*h) * d.config.MinSubjectRatio)

	filtered := regions[:0]
	for _, r := range regions {
		if r.Area() >= minArea {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered
}

// DominantColors returns up to five quantized colors that dominate region
func (d *SubjectDetector) DominantColors(img image.Image, region Region) []color.Color {
	b := img.Bounds()
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).
		Add(b.Min).Intersect(b)

	counts := make(map[uint32]int)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			key := ((r>>8)&0xf0)<<16 | ((g>>8)&0xf0)<<8 | (bl>>8)&0xf0
			counts[key]++
		}
	}

	keys := make([]uint32, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var colors []color.Color
	for _, k := range keys {
		if len(colors) == 5 || counts[k] < counts[keys[0]]/4 {
			break
		}
		colors = append(colors, color.NRGBA{uint8(k >> 16), uint8(k >> 8), uint8(k), 255})
	}
	return colors
}
