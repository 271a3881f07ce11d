// Package session tracks the ordered images of an annotation run and the
// current position.
package session

import (
	"fmt"

	"github.com/menta2k/roi-annotator/pkg/types"
)

// Session holds the ordered images being annotated and the current position.
type Session struct {
	images  []types.ImageDescriptor
	current int
}

// New creates an empty session
func New() *Session {
	return &Session{}
}

// Load replaces the session's images and resets the position to the first one.
func (s *Session) Load(images []types.ImageDescriptor) error {
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if img.ID == "" {
			return fmt.Errorf("image without id: %w", types.ErrInvalidImage)
		}
		if img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("image %q has size %dx%d: %w", img.ID, img.Width, img.Height, types.ErrInvalidImage)
		}
		if _, dup := seen[img.ID]; dup {
			return fmt.Errorf("duplicate image %q: %w", img.ID, types.ErrInvalidImage)
		}
		seen[img.ID] = struct{}{}
	}

	s.images = make([]types.ImageDescriptor, len(images))
	copy(s.images, images)
	s.current = 0
	return nil
}

// Current returns the image at the current position.
func (s *Session) Current() (types.ImageDescriptor, error) {
	if len(s.images) == 0 {
		return types.ImageDescriptor{}, types.ErrEmptySession
	}
	return s.images[s.current], nil
}

// Next advances to the next image. At the last image it stays put.
func (s *Session) Next() (types.ImageDescriptor, error) {
	if len(s.images) == 0 {
		return types.ImageDescriptor{}, types.ErrEmptySession
	}
	if s.current < len(s.images)-1 {
		s.current++
	}
	return s.images[s.current], nil
}

// Previous moves back one image. At the first image it stays put.
func (s *Session) Previous() (types.ImageDescriptor, error) {
	if len(s.images) == 0 {
		return types.ImageDescriptor{}, types.ErrEmptySession
	}
	if s.current > 0 {
		s.current--
	}
	return s.images[s.current], nil
}

// Index returns the current position.
func (s *Session) Index() int { return s.current }

// Len returns the number of loaded images.
func (s *Session) Len() int { return len(s.images) }

// Images returns a copy of the loaded images in order.
func (s *Session) Images() []types.ImageDescriptor {
	out := make([]types.ImageDescriptor, len(s.images))
	copy(out, s.images)
	return out
}
