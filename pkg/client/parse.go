package client

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/menta2k/roi-annotator/pkg/types"
)

// ErrNoSuggestion is returned when a model reply holds no usable region.
var ErrNoSuggestion = errors.New("model returned no usable region")

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// modelReply is the JSON shape requested from the model.
type modelReply struct {
	Label       string    `json:"label"`
	Confidence  float64   `json:"confidence"`
	Box         types.Box `json:"box"`
	Description string    `json:"description"`
}

// ParseSuggestion extracts a suggestion from a raw model reply.
func ParseSuggestion(raw string) (*types.Suggestion, error) {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrNoSuggestion
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, errors.Join(ErrNoSuggestion, err)
	}
	if strings.TrimSpace(reply.Label) == "" || strings.EqualFold(reply.Label, "none") {
		return nil, ErrNoSuggestion
	}

	return &types.Suggestion{
		Label:       reply.Label,
		Confidence:  reply.Confidence,
		Box:         reply.Box,
		Description: reply.Description,
	}, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
