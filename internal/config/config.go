package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	Host   string `yaml:"host"`
	Debug  bool   `yaml:"debug"`
	APIKey string `yaml:"api_key"`
}

type ProviderConfig struct {
	Default        string `yaml:"default"`
	LLMBaseURL     string `yaml:"llm_base_url"`
	LLMModel       string `yaml:"llm_model"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	OpenAIModel    string `yaml:"openai_model"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`
	ComfyBaseURL   string `yaml:"comfy_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Load reads the optional yaml file, a .env if present, and environment
// overrides, in that order. The result is a startup-time snapshot that
// callers pass around explicitly; nothing mutates it afterwards.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	c := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Provider: ProviderConfig{
			Default:        "ollama",
			LLMBaseURL:     "http://localhost:11434",
			LLMModel:       "llama3",
			OpenAIModel:    "gpt-4o-mini",
			ComfyBaseURL:   "http://localhost:8188",
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
	}
}

func (c *Config) applyEnvOverrides() {
	if port := getEnvInt("PORT", 0); port != 0 {
		c.Server.Port = port
	}
	if host := getEnv("HOST", ""); host != "" {
		c.Server.Host = host
	}
	if debug := getEnvBool("DEBUG", false); debug {
		c.Server.Debug = debug
	}
	if key := getEnv("API_KEY", ""); key != "" {
		c.Server.APIKey = strings.TrimSpace(key)
	}

	if def := getEnv("DEFAULT_PROVIDER", ""); def != "" {
		c.Provider.Default = def
	}
	if base := getEnv("LLM_BASE_URL", ""); base != "" {
		c.Provider.LLMBaseURL = base
	}
	if model := getEnv("LLM_MODEL", ""); model != "" {
		c.Provider.LLMModel = model
	}
	if base := getEnv("OPENAI_BASE_URL", ""); base != "" {
		c.Provider.OpenAIBaseURL = base
	}
	if model := getEnv("OPENAI_MODEL", ""); model != "" {
		c.Provider.OpenAIModel = model
	}
	if key := getEnv("OPENAI_API_KEY", ""); key != "" {
		c.Provider.OpenAIAPIKey = strings.TrimSpace(key)
	}
	if base := getEnv("COMFY_BASE_URL", ""); base != "" {
		c.Provider.ComfyBaseURL = base
	}
	if timeout := getEnvInt("PROVIDER_TIMEOUT", 0); timeout != 0 {
		c.Provider.TimeoutSeconds = timeout
	}

	if dir := getEnv("DATA_DIR", ""); dir != "" {
		c.Storage.DataDir = dir
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Provider.Default == "" {
		return fmt.Errorf("default provider is required")
	}
	if c.Provider.LLMBaseURL == "" {
		return fmt.Errorf("llm_base_url is required")
	}
	if c.Provider.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid provider timeout: %d", c.Provider.TimeoutSeconds)
	}
	return nil
}

// ProviderTimeout is the per-dispatch deadline for outbound provider calls.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.ToLower(v) == "true" || v == "1"
	}
	return def
}
