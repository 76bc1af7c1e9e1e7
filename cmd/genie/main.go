package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xaenox/genie-bot/internal/assistant"
	"github.com/xaenox/genie-bot/internal/bot"
	"github.com/xaenox/genie-bot/internal/conversation"
	"github.com/xaenox/genie-bot/internal/router"
	"github.com/xaenox/genie-bot/internal/storage"
	"github.com/xaenox/genie-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	configPath := "config.yaml"
	if p := os.Getenv("GENIE_CONFIG"); p != "" {
		configPath = p
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Initialize logger
	logger := newLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Resolve the remote assistant once, before any message is handled
	gateway := assistant.NewOpenAIGateway(cfg.OpenAI.APIKey, store, assistant.Config{
		Model:        cfg.OpenAI.Model,
		Name:         cfg.OpenAI.AssistantName,
		Instructions: cfg.OpenAI.SystemPromptPrefix,
		PollInterval: cfg.OpenAI.PollInterval,
		PollTimeout:  cfg.OpenAI.PollTimeout,
	}, logger)
	if _, err := gateway.Ensure(ctx); err != nil {
		logger.Fatal("Failed to prepare assistant", zap.Error(err))
	}

	conv := conversation.NewService(gateway, cfg.OpenAI.SystemPromptPrefix, logger)
	allowList := router.LoadAllowList(ctx, store, cfg.Discord.AllowedChannelIDs, logger)

	// Initialize bot
	b, err := bot.New(cfg.Discord.Token, allowList, conv, cfg.Discord.ThreadNameTemplate, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
	logger.Info("Shut down")
}

func newLogger(cfg config.LogConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case config.StoragePostgres:
		logger.Info("Using PostgreSQL storage")
		pg, err := storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		logger.Info("Using settings file", zap.String("path", cfg.Storage.Path))
		return storage.NewFileStorage(cfg.Storage.Path, logger), nil
	}
}
