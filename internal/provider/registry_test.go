package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepilot/backend/internal/domain"
)

type fakeProvider struct {
	name    string
	text    string
	err     error
	lastCtx context.Context
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Chat(ctx context.Context, req *domain.ChatRequest) (string, error) {
	f.lastCtx = ctx
	return f.text, f.err
}

func newTestRegistry() (*Registry, *fakeProvider, *fakeProvider) {
	ollama := &fakeProvider{name: "ollama", text: "from ollama"}
	openai := &fakeProvider{name: "openai", text: "from openai"}

	reg := NewRegistry("ollama", 5*time.Second)
	reg.Register(ollama)
	reg.Register(openai)
	return reg, ollama, openai
}

func TestResolve(t *testing.T) {
	reg, _, _ := newTestRegistry()

	tests := []struct {
		name      string
		requested string
		want      string
		wantErr   bool
	}{
		{"empty falls back to default", "", "ollama", false},
		{"member returned as-is", "openai", "openai", false},
		{"default provider explicit", "ollama", "ollama", false},
		{"unknown rejected", "mistral", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Resolve(tt.requested)
			if tt.wantErr {
				var unknown *domain.UnknownProviderError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, tt.requested, unknown.Name)
				assert.Equal(t, []string{"ollama", "openai"}, unknown.Available)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatch(t *testing.T) {
	reg, ollama, _ := newTestRegistry()

	req := &domain.ChatRequest{
		Message:        "hi",
		ConversationID: "conv-1",
	}

	resp, err := reg.Dispatch(context.Background(), "ollama", req)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "from ollama", resp.Text)

	// dispatch must bound the backend call with a deadline
	_, ok := ollama.lastCtx.Deadline()
	assert.True(t, ok)
}

func TestDispatchWrapsBackendFailure(t *testing.T) {
	reg, ollama, _ := newTestRegistry()
	ollama.err = errors.New("connection refused")

	_, err := reg.Dispatch(context.Background(), "ollama", &domain.ChatRequest{Message: "hi"})

	var unavailable *domain.ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "ollama", unavailable.Provider)
	assert.ErrorContains(t, unavailable.Err, "connection refused")
}

func TestDispatchUnknownName(t *testing.T) {
	reg, _, _ := newTestRegistry()

	_, err := reg.Dispatch(context.Background(), "mistral", &domain.ChatRequest{Message: "hi"})

	var unknown *domain.UnknownProviderError
	require.ErrorAs(t, err, &unknown)
}

func TestCatalog(t *testing.T) {
	reg, _, _ := newTestRegistry()

	catalog := reg.Catalog()
	assert.Equal(t, "ollama", catalog.Default)
	assert.Equal(t, []string{"ollama", "openai"}, catalog.Available)

	// snapshot must be detached from registry internals
	catalog.Available[0] = "mutated"
	assert.Equal(t, []string{"ollama", "openai"}, reg.Catalog().Available)
}

func TestRegisterReplacesKeepingOrder(t *testing.T) {
	reg, _, _ := newTestRegistry()

	reg.Register(&fakeProvider{name: "ollama", text: "v2"})

	catalog := reg.Catalog()
	assert.Equal(t, []string{"ollama", "openai"}, catalog.Available)

	resp, err := reg.Dispatch(context.Background(), "ollama", &domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "v2", resp.Text)
}
