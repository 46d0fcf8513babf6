package provider

import (
	"context"
	"sync"
	"time"

	"github.com/homepilot/backend/internal/domain"
	"github.com/homepilot/backend/internal/pkg/logger"
)

// Registry maps provider names to backends. Registration happens at
// startup; afterwards the registry is read-only and safe for concurrent
// readers.
type Registry struct {
	mu          sync.RWMutex
	defaultName string
	order       []string
	backends    map[string]Provider
	timeout     time.Duration
}

func NewRegistry(defaultName string, timeout time.Duration) *Registry {
	return &Registry{
		defaultName: defaultName,
		backends:    make(map[string]Provider),
		timeout:     timeout,
	}
}

// Register adds a backend under its own name. Re-registering a name
// replaces the backend but keeps its position in the catalog order.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.backends[name]; !exists {
		r.order = append(r.order, name)
	}
	r.backends[name] = p
}

// Resolve maps a requested provider name to the effective one. An empty
// request falls back to the configured default; a name outside the
// catalog is rejected before any network cost is paid.
func (r *Registry) Resolve(requested string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if requested == "" {
		requested = r.defaultName
	}
	if _, ok := r.backends[requested]; !ok {
		return "", &domain.UnknownProviderError{
			Name:      requested,
			Available: append([]string(nil), r.order...),
		}
	}
	return requested, nil
}

// Dispatch invokes the named backend and shapes its output. The
// conversation_id passes through untouched. Any backend failure is
// wrapped as ProviderUnavailableError so the HTTP layer can translate
// it instead of crashing on an untyped fault.
func (r *Registry) Dispatch(ctx context.Context, name string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	r.mu.RLock()
	backend, ok := r.backends[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UnknownProviderError{Name: name, Available: r.Catalog().Available}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := backend.Chat(ctx, req)
	if err != nil {
		logger.Error().Err(err).Str("provider", name).Msg("provider call failed")
		return nil, &domain.ProviderUnavailableError{Provider: name, Err: err}
	}

	return &domain.ChatResponse{
		ConversationID: req.ConversationID,
		Text:           text,
	}, nil
}

// Catalog returns a snapshot of the configured providers in
// registration order.
func (r *Registry) Catalog() domain.ProviderCatalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.ProviderCatalog{
		Default:   r.defaultName,
		Available: append([]string(nil), r.order...),
	}
}
