package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/homepilot/backend/internal/config"
	"github.com/homepilot/backend/internal/pkg/logger"
	"github.com/homepilot/backend/internal/pkg/utils"
	"github.com/homepilot/backend/internal/provider"
	"github.com/homepilot/backend/internal/provider/ollama"
	"github.com/homepilot/backend/internal/provider/openai"
	"github.com/homepilot/backend/internal/server"
	"github.com/homepilot/backend/internal/storage"
)

func main() {
	var configPath string
	var port int

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&configPath, "c", "", "path to config file (shorthand)")
	flag.IntVar(&port, "port", 0, "server port (overrides config)")
	flag.IntVar(&port, "p", 0, "server port (shorthand)")
	flag.Parse()

	if configPath == "" {
		candidates := []string{
			"configs/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config", "homepilot", "config.yaml"),
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		println("config error:", err.Error())
		println("hint: use --config flag or place config in ~/.config/homepilot/config.yaml")
		os.Exit(1)
	}

	if port > 0 {
		cfg.Server.Port = port
	}

	logger.Init(cfg.Server.Debug)

	store, err := storage.New(filepath.Join(cfg.Storage.DataDir, "assets"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open asset store")
		os.Exit(1)
	}
	defer store.Close()

	registry := provider.NewRegistry(cfg.Provider.Default, cfg.ProviderTimeout())
	registry.Register(ollama.New(cfg))
	if cfg.Provider.OpenAIBaseURL != "" {
		registry.Register(openai.New(cfg))
	}

	if _, err := registry.Resolve(cfg.Provider.Default); err != nil {
		logger.Fatal().Err(err).Msg("default provider is not registered")
		os.Exit(1)
	}

	tokenizer := utils.NewTokenizer(filepath.Join(cfg.Storage.DataDir, "tiktoken"))

	srv := server.New(cfg, registry, store, tokenizer)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
		os.Exit(1)
	}
}
