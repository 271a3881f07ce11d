// Package hittest picks the annotation under a pointer position.
package hittest

import (
	"github.com/menta2k/roi-annotator/pkg/geometry"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// DefaultTolerance is the pixel margin added around each box.
const DefaultTolerance = 5

// FindHit returns the position of the first annotation whose pixel bounds,
// expanded by tolerance, contain p. Earlier annotations win over later ones
// even when a later box is drawn on top.
//
// The bounds test is applied literally to the stored extents, so a box with a
// negative width or height only matches within the tolerance band.
func FindHit(p types.Point, annotations []types.Annotation, img types.ImageDescriptor, tolerance float64) (int, bool) {
	for i, a := range annotations {
		r := geometry.ToPixelRect(a.Box, img)
		if p.X >= r.X-tolerance && p.X <= r.X+r.W+tolerance &&
			p.Y >= r.Y-tolerance && p.Y <= r.Y+r.H+tolerance {
			return i, true
		}
	}
	return -1, false
}
