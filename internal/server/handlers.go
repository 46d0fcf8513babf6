package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homepilot/backend/internal/config"
	"github.com/homepilot/backend/internal/domain"
	"github.com/homepilot/backend/internal/pkg/logger"
	"github.com/homepilot/backend/internal/pkg/utils"
	"github.com/homepilot/backend/internal/pkg/validator"
	"github.com/homepilot/backend/internal/storage"
)

const serviceName = "homepilot-backend"

// uploads larger than this are rejected up front
const maxUploadBytes = 32 << 20

type Dispatcher interface {
	Resolve(requested string) (string, error)
	Dispatch(ctx context.Context, name string, req *domain.ChatRequest) (*domain.ChatResponse, error)
	Catalog() domain.ProviderCatalog
}

type AssetStore interface {
	Put(name, contentType string, data []byte) (*domain.Asset, error)
	Get(id string) (*domain.Asset, []byte, error)
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthResponse{OK: true, Service: serviceName})
	}
}

func Providers(registry Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog := registry.Catalog()
		writeJSON(w, http.StatusOK, domain.ProvidersResponse{
			OK:        true,
			Default:   catalog.Default,
			Available: catalog.Available,
		})
	}
}

func Settings(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.SettingsResponse{
			OK:              true,
			DefaultProvider: cfg.Provider.Default,
			LLMBaseURL:      cfg.Provider.LLMBaseURL,
			ComfyBaseURL:    cfg.Provider.ComfyBaseURL,
		})
	}
}

func Chat(registry Dispatcher, tokenizer utils.Tokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := validator.Validate(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}

		if req.Mode == "" {
			req.Mode = "chat"
		}

		name, err := registry.Resolve(req.Provider)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := registry.Dispatch(r.Context(), name, &req)
		if err != nil {
			var unavailable *domain.ProviderUnavailableError
			if errors.As(err, &unavailable) {
				writeErr(w, http.StatusBadGateway, "provider unavailable")
				return
			}
			writeErr(w, http.StatusInternalServerError, "failed to process request")
			return
		}

		logger.Info().
			Str("provider", name).
			Str("conversation_id", req.ConversationID).
			Str("mode", req.Mode).
			Bool("fun_mode", req.FunMode).
			Int("prompt_tokens", tokenizer.Count(req.Message)).
			Int("completion_tokens", tokenizer.Count(resp.Text)).
			Msg("chat completed")

		writeJSON(w, http.StatusOK, resp)
	}
}

func Upload(store AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeErr(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "failed to read upload")
			return
		}
		if len(data) > maxUploadBytes {
			writeErr(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		asset, err := store.Put(header.Filename, contentType, data)
		if err != nil {
			logger.Error().Err(err).Msg("failed to store upload")
			writeErr(w, http.StatusInternalServerError, "failed to store upload")
			return
		}

		logger.Info().
			Str("asset_id", asset.ID).
			Str("name", asset.Name).
			Int64("size", asset.Size).
			Msg("upload stored")

		writeJSON(w, http.StatusCreated, domain.UploadResponse{URL: "/uploads/" + asset.ID})
	}
}

func ServeUpload(store AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		asset, data, err := store.Get(id)
		if errors.Is(err, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "asset not found")
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("asset_id", id).Msg("failed to load asset")
			writeErr(w, http.StatusInternalServerError, "failed to load asset")
			return
		}

		w.Header().Set("Content-Type", asset.ContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, domain.ErrorResponse{OK: false, Error: msg})
}
