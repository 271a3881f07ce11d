// Package geometry converts between pixel rectangles and normalized boxes.
package geometry

import "github.com/menta2k/roi-annotator/pkg/types"

// ToNormalized converts a drag from start to end into a box normalized to img.
// The drag start is always the box origin, so a drag that moves up or left
// yields a negative width or height. Values are not clamped to [0,1].
func ToNormalized(start, end types.Point, img types.ImageDescriptor) types.Box {
	w, h := float64(img.Width), float64(img.Height)
	return types.Box{
		XMin:   start.X / w,
		YMin:   start.Y / h,
		Width:  (end.X - start.X) / w,
		Height: (end.Y - start.Y) / h,
	}
}

// ToPixelRect scales a normalized box back to img's pixel dimensions.
func ToPixelRect(box types.Box, img types.ImageDescriptor) types.Rect {
	w, h := float64(img.Width), float64(img.Height)
	return types.Rect{
		X: box.XMin * w,
		Y: box.YMin * h,
		W: box.Width * w,
		H: box.Height * h,
	}
}

// Canon returns r with non-negative width and height covering the same area.
func Canon(r types.Rect) types.Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}
