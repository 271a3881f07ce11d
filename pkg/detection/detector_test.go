package detection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/menta2k/roi-annotator/pkg/client"
	"github.com/menta2k/roi-annotator/pkg/types"
)

type fakeClient struct {
	suggestion *types.Suggestion
	err        error
	prompt     string
}

func (f *fakeClient) SimpleQuery(_ context.Context, _, prompt, _ string) (string, error) {
	f.prompt = prompt
	return "a dog", f.err
}

func (f *fakeClient) SuggestRegion(_ context.Context, _, prompt, _ string) (*types.Suggestion, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	s := *f.suggestion
	return &s, nil
}

func TestSuggestClampsAndMatches(t *testing.T) {
	fc := &fakeClient{suggestion: &types.Suggestion{
		Label:      " DOG ",
		Confidence: 1.4,
		Box:        types.Box{XMin: -0.1, YMin: 0.5, Width: 0.5, Height: 0.8},
	}}
	d := NewDetector(fc)

	s, err := d.Suggest(context.Background(), "llava", "img", []string{"cat", "dog"})
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if s.Label != "dog" {
		t.Errorf("Expected label dog, got %q", s.Label)
	}
	if s.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %f", s.Confidence)
	}
	want := types.Box{XMin: 0, YMin: 0.5, Width: 0.4, Height: 0.5}
	if diff(s.Box, want) > 1e-9 {
		t.Errorf("Expected box %+v, got %+v", want, s.Box)
	}
	if !strings.Contains(fc.prompt, "cat, dog") {
		t.Errorf("Prompt does not list known classes: %q", fc.prompt)
	}
}

func TestSuggestFlipsReversedBox(t *testing.T) {
	fc := &fakeClient{suggestion: &types.Suggestion{
		Label: "Bird",
		Box:   types.Box{XMin: 0.6, YMin: 0.6, Width: -0.2, Height: -0.4},
	}}
	s, err := NewDetector(fc).Suggest(context.Background(), "m", "img", nil)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if s.Label != "bird" {
		t.Errorf("Expected lowercased label, got %q", s.Label)
	}
	want := types.Box{XMin: 0.4, YMin: 0.2, Width: 0.2, Height: 0.4}
	if diff(s.Box, want) > 1e-9 {
		t.Errorf("Expected box %+v, got %+v", want, s.Box)
	}
	if fc.prompt != DefaultPrompt {
		t.Error("Expected the default prompt without classes")
	}
}

func TestSuggestRejectsEmptyBox(t *testing.T) {
	fc := &fakeClient{suggestion: &types.Suggestion{
		Label: "cat",
		Box:   types.Box{XMin: 1.2, YMin: 0.1, Width: 0.3, Height: 0.3},
	}}
	if _, err := NewDetector(fc).Suggest(context.Background(), "m", "img", nil); !errors.Is(err, client.ErrNoSuggestion) {
		t.Errorf("Expected ErrNoSuggestion, got %v", err)
	}
}

func TestSuggestPropagatesErrors(t *testing.T) {
	fc := &fakeClient{err: client.ErrNoSuggestion}
	if _, err := NewDetector(fc).Suggest(context.Background(), "m", "img", nil); !errors.Is(err, client.ErrNoSuggestion) {
		t.Errorf("Expected wrapped ErrNoSuggestion, got %v", err)
	}
}

func TestTestVision(t *testing.T) {
	fc := &fakeClient{}
	got, err := NewDetector(fc).TestVision(context.Background(), "m", "img")
	if err != nil || got != "a dog" {
		t.Errorf("TestVision = %q, %v", got, err)
	}
	if fc.prompt != SimpleTestPrompt {
		t.Errorf("Expected SimpleTestPrompt, got %q", fc.prompt)
	}
}

func diff(a, b types.Box) float64 {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	return abs(a.XMin-b.XMin) + abs(a.YMin-b.YMin) + abs(a.Width-b.Width) + abs(a.Height-b.Height)
}
