package provider

import (
	"context"

	"github.com/homepilot/backend/internal/domain"
)

// Provider is an outbound chat backend selected by name. Chat returns the
// generated text for the request; transport failures come back as plain
// errors and are wrapped at the dispatch boundary.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req *domain.ChatRequest) (string, error)
}
