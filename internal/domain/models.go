package domain

import "time"

type ChatRequest struct {
	Message        string `json:"message" validate:"required"`
	ConversationID string `json:"conversation_id"`
	FunMode        bool   `json:"fun_mode"`
	Mode           string `json:"mode" validate:"omitempty,oneof=chat assist"`
	Provider       string `json:"provider,omitempty"`
}

type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// ProviderCatalog is a read-only snapshot of the configured providers.
// It is built once at startup and only changes on process restart.
type ProviderCatalog struct {
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

type ProvidersResponse struct {
	OK        bool     `json:"ok"`
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

type SettingsResponse struct {
	OK              bool   `json:"ok"`
	DefaultProvider string `json:"default_provider"`
	LLMBaseURL      string `json:"llm_base_url"`
	ComfyBaseURL    string `json:"comfy_base_url"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Asset describes a stored upload. The raw bytes live next to the
// metadata in the blob store and are served back unchanged.
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
