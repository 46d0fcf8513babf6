package openai

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

const funPrompt = "You are HomePilot, a playful home assistant. Keep answers light and helpful."

// Client speaks the OpenAI chat-completions wire format, which also
// covers self-hosted compatible runtimes pointed at via openai_base_url.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *httpclient.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.Provider.OpenAIBaseURL, "/"),
		model:   cfg.Provider.OpenAIModel,
		apiKey:  cfg.Provider.OpenAIAPIKey,
		http:    httpclient.New(0),
	}
}

func (c *Client) Name() string {
	return "openai"
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionsPayload struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionsReply struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Chat(ctx context.Context, req *domain.ChatRequest) (string, error) {
	msgs := []message{}
	if req.FunMode {
		msgs = append(msgs, message{Role: "system", Content: funPrompt})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Message})

	body, err := json.Marshal(completionsPayload{Model: c.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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
			Msg("openai returned error")

		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}

	var reply completionsReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}

	if len(reply.Choices) == 0 {
		return "", fmt.Errorf("empty choices in reply")
	}

	return reply.Choices[0].Message.Content, nil
}
