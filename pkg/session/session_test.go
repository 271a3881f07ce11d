package session

import (
	"errors"
	"testing"

	"github.com/menta2k/roi-annotator/pkg/types"
)

func threeImages() []types.ImageDescriptor {
	return []types.ImageDescriptor{
		{ID: "a.jpg", Width: 100, Height: 100},
		{ID: "b.jpg", Width: 200, Height: 100},
		{ID: "c.jpg", Width: 300, Height: 100},
	}
}

func TestEmptySession(t *testing.T) {
	s := New()

	if _, err := s.Current(); !errors.Is(err, types.ErrEmptySession) {
		t.Errorf("Current: expected ErrEmptySession, got %v", err)
	}
	if _, err := s.Next(); !errors.Is(err, types.ErrEmptySession) {
		t.Errorf("Next: expected ErrEmptySession, got %v", err)
	}
	if _, err := s.Previous(); !errors.Is(err, types.ErrEmptySession) {
		t.Errorf("Previous: expected ErrEmptySession, got %v", err)
	}
}

func TestNavigationIsBounded(t *testing.T) {
	s := New()
	if err := s.Load(threeImages()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if img, _ := s.Previous(); img.ID != "a.jpg" {
		t.Errorf("Previous at start should stay on a.jpg, got %s", img.ID)
	}

	steps := []string{"b.jpg", "c.jpg", "c.jpg"}
	for i, want := range steps {
		img, err := s.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if img.ID != want {
			t.Errorf("step %d: expected %s, got %s", i, want, img.ID)
		}
	}
	if s.Index() != 2 {
		t.Errorf("Expected index 2, got %d", s.Index())
	}

	if img, _ := s.Previous(); img.ID != "b.jpg" {
		t.Errorf("Expected b.jpg, got %s", img.ID)
	}
}

func TestLoadResetsIndex(t *testing.T) {
	s := New()
	_ = s.Load(threeImages())
	_, _ = s.Next()
	_, _ = s.Next()

	if err := s.Load([]types.ImageDescriptor{{ID: "z.png", Width: 10, Height: 10}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cur, err := s.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cur.ID != "z.png" || s.Index() != 0 || s.Len() != 1 {
		t.Errorf("Expected reset to z.png at 0, got %s at %d (len %d)", cur.ID, s.Index(), s.Len())
	}
}

func TestLoadRejectsInvalidImages(t *testing.T) {
	tests := []struct {
		name   string
		images []types.ImageDescriptor
	}{
		{"zero width", []types.ImageDescriptor{{ID: "a.jpg", Width: 0, Height: 10}}},
		{"negative height", []types.ImageDescriptor{{ID: "a.jpg", Width: 10, Height: -1}}},
		{"missing id", []types.ImageDescriptor{{Width: 10, Height: 10}}},
		{"duplicate id", []types.ImageDescriptor{{ID: "a.jpg", Width: 10, Height: 10}, {ID: "a.jpg", Width: 20, Height: 20}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			if err := s.Load(tt.images); !errors.Is(err, types.ErrInvalidImage) {
				t.Errorf("Expected ErrInvalidImage, got %v", err)
			}
			if s.Len() != 0 {
				t.Errorf("Rejected load should leave the session empty, got %d images", s.Len())
			}
		})
	}
}
