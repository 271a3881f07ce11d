// Package store keeps annotations per image in insertion order.
package store

import (
	"fmt"
	"sort"

	"github.com/menta2k/roi-annotator/pkg/types"
)

// Store holds the annotations of every image, keyed by image ID.
// Only images with at least one annotation have an entry.
type Store struct {
	annotations map[string][]types.Annotation
}

// New creates an empty store
func New() *Store {
	return &Store{annotations: make(map[string][]types.Annotation)}
}

// Add appends a to the annotations of imageID.
func (s *Store) Add(imageID string, a types.Annotation) {
	s.annotations[imageID] = append(s.annotations[imageID], a)
}

// RemoveAt removes and returns the annotation at position for imageID.
func (s *Store) RemoveAt(imageID string, position int) (types.Annotation, error) {
	list, ok := s.annotations[imageID]
	if !ok {
		return types.Annotation{}, fmt.Errorf("image %q has no annotations: %w", imageID, types.ErrIndexOutOfRange)
	}
	if position < 0 || position >= len(list) {
		return types.Annotation{}, fmt.Errorf("position %d for image %q (size %d): %w", position, imageID, len(list), types.ErrIndexOutOfRange)
	}

	removed := list[position]
	list = append(list[:position], list[position+1:]...)
	if len(list) == 0 {
		delete(s.annotations, imageID)
	} else {
		s.annotations[imageID] = list
	}
	return removed, nil
}

// ListFor returns a copy of imageID's annotations in creation order.
// The result is empty, never nil, for an image without annotations.
func (s *Store) ListFor(imageID string) []types.Annotation {
	list := s.annotations[imageID]
	out := make([]types.Annotation, len(list))
	copy(out, list)
	return out
}

// ImageIDs returns the sorted IDs of images that have annotations.
func (s *Store) ImageIDs() []string {
	ids := make([]string, 0, len(s.annotations))
	for id := range s.annotations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of images with annotations.
func (s *Store) Len() int {
	return len(s.annotations)
}

// Count returns the total number of annotations.
func (s *Store) Count() int {
	n := 0
	for _, list := range s.annotations {
		n += len(list)
	}
	return n
}
