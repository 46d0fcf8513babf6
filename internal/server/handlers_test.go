package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homepilot/backend/internal/config"
	"github.com/homepilot/backend/internal/domain"
	"github.com/homepilot/backend/internal/storage"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Resolve(requested string) (string, error) {
	args := m.Called(requested)
	return args.String(0), args.Error(1)
}

func (m *MockDispatcher) Dispatch(ctx context.Context, name string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	args := m.Called(ctx, name, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatResponse), args.Error(1)
}

func (m *MockDispatcher) Catalog() domain.ProviderCatalog {
	args := m.Called()
	return args.Get(0).(domain.ProviderCatalog)
}

type MockTokener struct{}

func (m *MockTokener) Init() error { return nil }
func (m *MockTokener) Count(text string) int {
	return len(strings.Fields(text))
}

func TestHealth(t *testing.T) {
	handler := Health()

	// repeated calls must return identical output
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp domain.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "homepilot-backend", resp.Service)
	}
}

func TestProviders(t *testing.T) {
	reg := new(MockDispatcher)
	reg.On("Catalog").Return(domain.ProviderCatalog{
		Default:   "ollama",
		Available: []string{"ollama", "openai"},
	})

	req := httptest.NewRequest("GET", "/providers", nil)
	w := httptest.NewRecorder()
	Providers(reg)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp domain.ProvidersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "ollama", resp.Default)
	assert.Equal(t, []string{"ollama", "openai"}, resp.Available)
}

func TestSettings(t *testing.T) {
	cfg := &config.Config{
		Provider: config.ProviderConfig{
			Default:      "ollama",
			LLMBaseURL:   "http://localhost:11434",
			ComfyBaseURL: "http://localhost:8188",
		},
	}

	req := httptest.NewRequest("GET", "/settings", nil)
	w := httptest.NewRecorder()
	Settings(cfg)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "ollama", body["default_provider"])
	assert.Equal(t, "http://localhost:11434", body["llm_base_url"])
	assert.Equal(t, "http://localhost:8188", body["comfy_base_url"])
}

func TestChat(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setup      func(*MockDispatcher)
		wantStatus int
		verify     func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:       "invalid json",
			body:       `{ "message": `,
			setup:      func(m *MockDispatcher) {},
			wantStatus: http.StatusBadRequest,
			verify: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "invalid json")
			},
		},
		{
			name:       "missing message",
			body:       domain.ChatRequest{ConversationID: "c1"},
			setup:      func(m *MockDispatcher) {},
			wantStatus: http.StatusBadRequest,
			verify: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "validation failed")
			},
		},
		{
			name: "unknown provider",
			body: domain.ChatRequest{
				Message:        "hi",
				ConversationID: "c1",
				Provider:       "bogus",
			},
			setup: func(m *MockDispatcher) {
				m.On("Resolve", "bogus").Return("", &domain.UnknownProviderError{
					Name:      "bogus",
					Available: []string{"ollama"},
				})
			},
			wantStatus: http.StatusBadRequest,
			verify: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "unknown provider")
				var resp domain.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.False(t, resp.OK)
			},
		},
		{
			name: "provider unavailable",
			body: domain.ChatRequest{
				Message:        "hi",
				ConversationID: "c1",
				Provider:       "ollama",
			},
			setup: func(m *MockDispatcher) {
				m.On("Resolve", "ollama").Return("ollama", nil)
				m.On("Dispatch", mock.Anything, "ollama", mock.Anything).
					Return(nil, &domain.ProviderUnavailableError{
						Provider: "ollama",
						Err:      errors.New("connection refused"),
					})
			},
			wantStatus: http.StatusBadGateway,
			verify: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "provider unavailable")
			},
		},
		{
			name: "explicit provider success",
			body: domain.ChatRequest{
				Message:        "hello from ollama",
				ConversationID: "test-ollama",
				FunMode:        false,
				Mode:           "chat",
				Provider:       "ollama",
			},
			setup: func(m *MockDispatcher) {
				m.On("Resolve", "ollama").Return("ollama", nil)
				m.On("Dispatch", mock.Anything, "ollama", mock.Anything).
					Return(&domain.ChatResponse{
						ConversationID: "test-ollama",
						Text:           "hi there",
					}, nil)
			},
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp domain.ChatResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "test-ollama", resp.ConversationID)
				assert.NotEmpty(t, resp.Text)
			},
		},
		{
			name: "omitted provider falls back to default",
			body: domain.ChatRequest{
				Message:        "hi",
				ConversationID: "c2",
			},
			setup: func(m *MockDispatcher) {
				m.On("Resolve", "").Return("ollama", nil)
				m.On("Dispatch", mock.Anything, "ollama", mock.Anything).
					Return(&domain.ChatResponse{ConversationID: "c2", Text: "ok"}, nil)
			},
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp domain.ChatResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "c2", resp.ConversationID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := new(MockDispatcher)
			tt.setup(reg)

			var reqBody io.Reader
			if s, ok := tt.body.(string); ok {
				reqBody = strings.NewReader(s)
			} else {
				b, _ := json.Marshal(tt.body)
				reqBody = bytes.NewReader(b)
			}

			req := httptest.NewRequest("POST", "/chat", reqBody)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			Chat(reg, &MockTokener{})(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.verify != nil {
				tt.verify(t, w)
			}

			reg.AssertExpectations(t)
		})
	}
}

func TestUploadRoundTrip(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	cfg := &config.Config{
		Provider: config.ProviderConfig{Default: "ollama"},
	}
	reg := new(MockDispatcher)
	srv := New(cfg, reg, store, &MockTokener{})

	// minimal png header plus payload, enough for a byte round trip
	payload := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xAB}, 64)...)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "avatar.png")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp domain.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.URL, "/uploads/"))

	// fetching the returned url must yield the same bytes
	req = httptest.NewRequest("GET", resp.URL, nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestUploadMissingFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	Upload(&failingStore{})(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing file field")
}

func TestServeUploadNotFound(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	cfg := &config.Config{}
	srv := New(cfg, new(MockDispatcher), store, &MockTokener{})

	req := httptest.NewRequest("GET", "/uploads/no-such-id", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingStore struct{}

func (f *failingStore) Put(name, contentType string, data []byte) (*domain.Asset, error) {
	return nil, errors.New("store down")
}

func (f *failingStore) Get(id string) (*domain.Asset, []byte, error) {
	return nil, nil, errors.New("store down")
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{APIKey: "sekret"},
		Provider: config.ProviderConfig{
			Default:      "ollama",
			LLMBaseURL:   "http://localhost:11434",
			ComfyBaseURL: "http://localhost:8188",
		},
	}

	reg := new(MockDispatcher)
	reg.On("Catalog").Return(domain.ProviderCatalog{Default: "ollama", Available: []string{"ollama"}})

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	srv := New(cfg, reg, store, &MockTokener{})

	tests := []struct {
		name       string
		path       string
		header     map[string]string
		wantStatus int
	}{
		{"health is always open", "/health", nil, http.StatusOK},
		{"no key rejected", "/providers", nil, http.StatusUnauthorized},
		{"wrong key rejected", "/providers", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"x-api-key accepted", "/providers", map[string]string{"X-API-Key": "sekret"}, http.StatusOK},
		{"bearer accepted", "/settings", map[string]string{"Authorization": "Bearer sekret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
