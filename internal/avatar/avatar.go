// Package avatar declares the generative face pipeline. The entry
// points exist so callers can wire against the interface today, but
// both fail until the StyleGAN weights and a GPU runtime are available.
package avatar

import (
	"context"

	"github.com/homepilot/backend/internal/domain"
)

type Generator struct {
	weightsPath string
}

func NewGenerator(weightsPath string) *Generator {
	return &Generator{weightsPath: weightsPath}
}

// LoadWeights always fails: no weights file ships with the backend.
func (g *Generator) LoadWeights(path string) error {
	if path == "" {
		path = g.weightsPath
	}
	return &domain.NotImplementedError{
		Feature: "avatar weight loading",
		Reason:  "StyleGAN weights are not bundled (looked for " + displayPath(path) + ")",
	}
}

// GenerateFaces always fails: inference needs a GPU runtime that this
// deployment does not provide. No partial results are ever returned.
func (g *Generator) GenerateFaces(ctx context.Context, seeds []int64) ([][]byte, error) {
	return nil, &domain.NotImplementedError{
		Feature: "avatar face generation",
		Reason:  "requires loaded StyleGAN weights and a GPU-resident runtime",
	}
}

func displayPath(path string) string {
	if path == "" {
		return "no configured path"
	}
	return path
}
