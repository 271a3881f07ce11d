// Package types defines the shared annotation types and errors.
package types

import "errors"

var (
	// ErrInvalidClassName is returned for empty or whitespace-only class names.
	ErrInvalidClassName = errors.New("invalid class name")
	// ErrUnknownClass is returned when a class name is not registered.
	ErrUnknownClass = errors.New("unknown class")
	// ErrIndexOutOfRange is returned for a bad registry index or store position.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptySession is returned when navigating or querying without images.
	ErrEmptySession = errors.New("no images loaded")
	// ErrExportSink wraps a write rejected by an export sink.
	ErrExportSink = errors.New("export sink failure")
	// ErrNoClassSelected is returned when a box is drawn before a class was chosen.
	ErrNoClassSelected = errors.New("no class selected")
	// ErrInvalidImage is returned for descriptors that cannot be annotated.
	ErrInvalidImage = errors.New("invalid image descriptor")
)

// ImageDescriptor identifies a decoded image and its pixel size.
// ID is the filename and must be unique within a session.
type ImageDescriptor struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path,omitempty"`
}

// Point is a position in pixel coordinates of the displayed image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a pixel rectangle. W and H may be negative for reversed drags.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Box represents a bounding box normalized to the owning image's dimensions.
// Width and Height are spans, not a second corner.
type Box struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the box center as used by the YOLO format.
func (b Box) Center() (float64, float64) {
	return b.XMin + b.Width/2, b.YMin + b.Height/2
}

// Annotation is a labelled box. ClassIndex refers into the class registry.
type Annotation struct {
	Box        Box `json:"box"`
	ClassIndex int `json:"classIndex"`
}

// Suggestion is a labelled box proposed by a vision model
type Suggestion struct {
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Box         Box     `json:"box"`
	Description string  `json:"description,omitempty"`
}
