// Package annotator provides bounding-box annotation of image sets.
//
// An Annotator owns the loaded images, the annotations drawn on them and the
// class labels in use. It exposes one method per user gesture so that any UI
// layer (the bundled CLI, a web front end, a desktop canvas) can drive it
// synchronously:
//
//	a := annotator.New()
//	_ = a.LoadImages([]types.ImageDescriptor{{ID: "cat.jpg", Width: 800, Height: 600}})
//	_ = a.OnClassSelected("cat")
//	a.OnDragStart(types.Point{X: 100, Y: 100})
//	ann, _ := a.OnDragComplete(types.Point{X: 300, Y: 400})
//	fmt.Println(export.YoloLine(ann)) // 0 0.250000 0.416667 0.250000 0.500000
//
// The package consists of these components:
//
//  1. Geometry (pkg/geometry): pixel rectangles to normalized boxes and back
//  2. Classes (pkg/classes): class names and their export indices
//  3. Store (pkg/store): per-image annotation lists
//  4. Hit testing (pkg/hittest): picking the box under the pointer
//  5. Export (pkg/export, pkg/sink): YOLO, JSON and Parquet output
//  6. Session (pkg/session): the ordered images and navigation
//
// Annotator is not safe for concurrent use; events are expected one at a time.
package annotator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/menta2k/roi-annotator/pkg/classes"
	"github.com/menta2k/roi-annotator/pkg/export"
	"github.com/menta2k/roi-annotator/pkg/geometry"
	"github.com/menta2k/roi-annotator/pkg/hittest"
	"github.com/menta2k/roi-annotator/pkg/session"
	"github.com/menta2k/roi-annotator/pkg/sink"
	"github.com/menta2k/roi-annotator/pkg/store"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// Version of the annotator library
const Version = "1.0.0"

// Config holds the tunables of an Annotator
type Config struct {
	Tolerance     float64
	ClassOrdering classes.Ordering
	Concurrency   int
	Logger        *slog.Logger
}

// DefaultConfig returns the reference behavior: 5px hit tolerance and sorted classes.
func DefaultConfig() Config {
	return Config{
		Tolerance:     hittest.DefaultTolerance,
		ClassOrdering: classes.OrderSorted,
		Concurrency:   sink.DefaultConcurrency,
	}
}

// Annotator ties the session, store and class registry together.
type Annotator struct {
	config   Config
	logger   *slog.Logger
	session  *session.Session
	store    *store.Store
	registry *classes.Registry

	selected  string
	dragStart *types.Point
	pending   map[string]types.Box
}

// New creates an Annotator with default configuration
func New() *Annotator {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Annotator with custom configuration
func NewWithConfig(cfg Config) *Annotator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{
		config:   cfg,
		logger:   logger,
		session:  session.New(),
		store:    store.New(),
		registry: classes.NewWithOrdering(cfg.ClassOrdering),
		pending:  make(map[string]types.Box),
	}
}

// Store returns the annotation store.
func (a *Annotator) Store() *store.Store { return a.store }

// Registry returns the class registry.
func (a *Annotator) Registry() *classes.Registry { return a.registry }

// Session returns the image session.
func (a *Annotator) Session() *session.Session { return a.session }

// LoadImages replaces the loaded images and moves to the first one.
func (a *Annotator) LoadImages(images []types.ImageDescriptor) error {
	if err := a.session.Load(images); err != nil {
		return err
	}
	a.dragStart = nil
	a.logger.Info("Loaded images", "count", len(images))
	return nil
}

// Current returns the image being annotated.
func (a *Annotator) Current() (types.ImageDescriptor, error) {
	return a.session.Current()
}

// Next moves to the next image; at the end it stays on the last one.
func (a *Annotator) Next() (types.ImageDescriptor, error) {
	a.dragStart = nil
	return a.session.Next()
}

// Previous moves to the previous image; at the start it stays on the first one.
func (a *Annotator) Previous() (types.ImageDescriptor, error) {
	a.dragStart = nil
	return a.session.Previous()
}

// OnClassSelected registers name if needed and makes it the class for new boxes.
func (a *Annotator) OnClassSelected(name string) error {
	if err := a.registry.Register(name); err != nil {
		return err
	}
	a.selected = name
	return nil
}

// SelectedClass returns the class applied to new boxes, if any.
func (a *Annotator) SelectedClass() (string, bool) {
	return a.selected, a.selected != ""
}

// OnDragStart records the pointer-down position of a new box.
func (a *Annotator) OnDragStart(p types.Point) {
	a.dragStart = &p
}

// OnDragComplete finishes the box started by OnDragStart at end and stores it.
// Without a preceding OnDragStart the box degenerates to the single point end.
func (a *Annotator) OnDragComplete(end types.Point) (types.Annotation, error) {
	start := end
	if a.dragStart != nil {
		start = *a.dragStart
	}
	a.dragStart = nil
	return a.AddBox(start, end)
}

// AddBox normalizes the drag from start to end on the current image, labels it
// with the selected class and appends it to the image's annotations.
func (a *Annotator) AddBox(start, end types.Point) (types.Annotation, error) {
	img, err := a.session.Current()
	if err != nil {
		return types.Annotation{}, err
	}
	if a.selected == "" {
		return types.Annotation{}, types.ErrNoClassSelected
	}

	box := geometry.ToNormalized(start, end, img)
	a.pending[img.ID] = box
	return a.addAnnotation(img, box, a.selected)
}

// Pending returns the most recently drawn box on the current image.
func (a *Annotator) Pending() (types.Box, bool) {
	img, err := a.session.Current()
	if err != nil {
		return types.Box{}, false
	}
	box, ok := a.pending[img.ID]
	return box, ok
}

// ApplySuggestion stores a model-proposed box on the current image, registering
// its label as a class.
func (a *Annotator) ApplySuggestion(s types.Suggestion) (types.Annotation, error) {
	img, err := a.session.Current()
	if err != nil {
		return types.Annotation{}, err
	}
	if err := a.registry.Register(s.Label); err != nil {
		return types.Annotation{}, err
	}
	return a.addAnnotation(img, s.Box, s.Label)
}

func (a *Annotator) addAnnotation(img types.ImageDescriptor, box types.Box, class string) (types.Annotation, error) {
	idx, err := a.registry.IndexOf(class)
	if err != nil {
		return types.Annotation{}, err
	}
	ann := types.Annotation{Box: box, ClassIndex: idx}
	a.store.Add(img.ID, ann)
	a.logger.Debug("Added annotation",
		"image", img.ID, "class", class, "index", idx,
		"xmin", box.XMin, "ymin", box.YMin, "width", box.Width, "height", box.Height)
	return ann, nil
}

// OnDeleteGesture removes the first annotation of the current image whose
// tolerance-expanded bounds contain p. It reports whether a box was removed.
func (a *Annotator) OnDeleteGesture(p types.Point) (types.Annotation, bool, error) {
	img, err := a.session.Current()
	if err != nil {
		return types.Annotation{}, false, err
	}

	pos, ok := hittest.FindHit(p, a.store.ListFor(img.ID), img, a.config.Tolerance)
	if !ok {
		return types.Annotation{}, false, nil
	}
	removed, err := a.store.RemoveAt(img.ID, pos)
	if err != nil {
		return types.Annotation{}, false, err
	}
	if box, ok := a.pending[img.ID]; ok && box == removed.Box {
		delete(a.pending, img.ID)
	}
	a.logger.Debug("Removed annotation", "image", img.ID, "position", pos)
	return removed, true, nil
}

// Annotations returns the annotations of the current image.
func (a *Annotator) Annotations() ([]types.Annotation, error) {
	img, err := a.session.Current()
	if err != nil {
		return nil, err
	}
	return a.store.ListFor(img.ID), nil
}

// Export builds every file of a dataset export in format.
func (a *Annotator) Export(format export.Format) ([]export.File, error) {
	return export.Dataset(a.store, a.registry, format)
}

// ExportTo builds the export and delivers it to s. Per-file write failures are
// reported in the results; the returned error covers only building the export.
func (a *Annotator) ExportTo(ctx context.Context, s sink.Sink, format export.Format) ([]sink.Result, error) {
	files, err := a.Export(format)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s export: %w", format, err)
	}
	if len(files) == 0 {
		a.logger.Info("Nothing to export")
		return nil, nil
	}

	results := sink.Deliver(ctx, s, files, a.config.Concurrency, a.logger)
	failed := sink.Failed(results)
	a.logger.Info("Export finished", "format", format, "files", len(results), "failed", len(failed))
	return results, nil
}

// Preview renders the whole dataset as clipboard text.
func (a *Annotator) Preview(format export.Format) (string, error) {
	return export.Preview(a.store, a.registry, format)
}
