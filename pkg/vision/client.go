package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/roi-annotator/pkg/client"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// DefaultLabel names regions found by the saliency backend
const DefaultLabel = "object"

// Client is an offline VisionClient backed by SubjectDetector.
// Model names and prompts are ignored.
type Client struct {
	detector *SubjectDetector
	label    string
}

// NewClient creates a saliency backend that labels its regions with label
func NewClient(label string) *Client {
	if strings.TrimSpace(label) == "" {
		label = DefaultLabel
	}
	return &Client{detector: New(), label: label}
}

// SimpleQuery describes the salient regions found in the image
func (c *Client) SimpleQuery(ctx context.Context, _, _, imgB64 string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := decode(imgB64)
	if err != nil {
		return "", err
	}

	regions := c.detector.DetectSubjects(img)
	if len(regions) == 0 {
		return "no salient regions", nil
	}
	best := regions[0]
	var hex []string
	for _, col := range c.detector.DominantColors(img, best) {
		n := color.NRGBAModel.Convert(col).(color.NRGBA)
		hex = append(hex, fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B))
	}
	return fmt.Sprintf("%d salient regions; strongest at (%d,%d) %dx%d score %.3f; colors %s",
		len(regions), best.X, best.Y, best.Width, best.Height, best.Score, strings.Join(hex, " ")), nil
}

// SuggestRegion proposes the most salient region of the image
func (c *Client) SuggestRegion(ctx context.Context, _, _, imgB64 string) (*types.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := decode(imgB64)
	if err != nil {
		return nil, err
	}

	best, ok := c.detector.Best(img)
	if !ok {
		return nil, client.ErrNoSuggestion
	}
	b := img.Bounds()
	confidence := best.Score / c.detector.MaxScore()
	if confidence > 1 {
		confidence = 1
	}
	return &types.Suggestion{
		Label:       c.label,
		Confidence:  confidence,
		Box:         best.Normalize(b.Dx(), b.Dy()),
		Description: "salient region",
	}, nil
}

func decode(imgB64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
