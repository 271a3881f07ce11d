package client

import (
	"context"

	"github.com/menta2k/roi-annotator/pkg/types"
)

// VisionClient is a vision-language model backend.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	SuggestRegion(ctx context.Context, model, prompt, imgB64 string) (*types.Suggestion, error)
}
