package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/homepilot/backend/internal/config"
	"github.com/homepilot/backend/internal/domain"
	"github.com/homepilot/backend/internal/pkg/httpclient"
	"github.com/homepilot/backend/internal/pkg/logger"
)

const funPrompt = "You are HomePilot, a playful home assistant. Keep answers light, throw in the occasional joke, but stay helpful."
const assistPrompt = "You are HomePilot, a concise home assistant. Answer directly and keep responses short."

type Client struct {
	baseURL string
	model   string
	http    *httpclient.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.Provider.LLMBaseURL, "/"),
		model:   cfg.Provider.LLMModel,
		http:    httpclient.New(0),
	}
}

func (c *Client) Name() string {
	return "ollama"
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatReply struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (c *Client) Chat(ctx context.Context, req *domain.ChatRequest) (string, error) {
	payload := chatPayload{
		Model:    c.model,
		Messages: buildMessages(req),
		Stream:   false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	url := c.baseURL + "/api/chat"

	logger.Debug().
		Str("url", url).
		Str("model", c.model).
		Str("mode", req.Mode).
		Bool("fun_mode", req.FunMode).
		Msg("sending ollama request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)

		logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("ollama returned error")

		return "", fmt.Errorf("ollama status %d", resp.StatusCode)
	}

	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}

	return reply.Message.Content, nil
}

func buildMessages(req *domain.ChatRequest) []message {
	var msgs []message
	if sys := systemPrompt(req); sys != "" {
		msgs = append(msgs, message{Role: "system", Content: sys})
	}
	return append(msgs, message{Role: "user", Content: req.Message})
}

func systemPrompt(req *domain.ChatRequest) string {
	if req.FunMode {
		return funPrompt
	}
	if req.Mode == "assist" {
		return assistPrompt
	}
	return ""
}
