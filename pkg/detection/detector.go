package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/roi-annotator/pkg/client"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks for the single most prominent object as a normalized box
const DefaultPrompt = `You are an image annotation assistant.

Return JSON only:
{
  "label": "string",
  "confidence": 0.0,
  "box": {"xmin": 0.0, "ymin": 0.0, "width": 0.0, "height": 0.0},
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- xmin/ymin is the top-left corner; width/height are the box extents.
- The box should tightly include the most prominent object.
- label is a short lowercase noun.
- If no object is found, return {"label":"none","confidence":0.0,"box":{"xmin":0,"ymin":0,"width":0,"height":0}}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detector turns vision model replies into annotation suggestions
type Detector struct {
	client client.VisionClient
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client}
}

// BuildPrompt returns DefaultPrompt, steering the label toward known classes
func BuildPrompt(classes []string) string {
	if len(classes) == 0 {
		return DefaultPrompt
	}
	return DefaultPrompt + "\n- Prefer one of these labels when it fits: " + strings.Join(classes, ", ") + "."
}

// Suggest asks the model for the most prominent object in the image.
// The box is clamped into the image and the label is matched against classes.
func (d *Detector) Suggest(ctx context.Context, model, imageB64 string, classes []string) (*types.Suggestion, error) {
	s, err := d.client.SuggestRegion(ctx, model, BuildPrompt(classes), imageB64)
	if err != nil {
		return nil, fmt.Errorf("suggestion failed: %w", err)
	}

	s.Box = clampBox(s.Box)
	s.Label = matchLabel(s.Label, classes)
	s.Confidence = clamp(s.Confidence, 0, 1)
	if s.Box.Width == 0 || s.Box.Height == 0 {
		return nil, client.ErrNoSuggestion
	}
	return s, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampBox keeps a suggested box inside [0,1]. Reversed extents are flipped.
func clampBox(b types.Box) types.Box {
	if b.Width < 0 {
		b.XMin, b.Width = b.XMin+b.Width, -b.Width
	}
	if b.Height < 0 {
		b.YMin, b.Height = b.YMin+b.Height, -b.Height
	}
	x0, y0 := clamp(b.XMin, 0, 1), clamp(b.YMin, 0, 1)
	x1, y1 := clamp(b.XMin+b.Width, 0, 1), clamp(b.YMin+b.Height, 0, 1)
	return types.Box{XMin: x0, YMin: y0, Width: x1 - x0, Height: y1 - y0}
}

// matchLabel lowercases the label and snaps it to a known class ignoring case
func matchLabel(label string, classes []string) string {
	label = strings.TrimSpace(label)
	for _, c := range classes {
		if strings.EqualFold(c, label) {
			return c
		}
	}
	return strings.ToLower(label)
}
