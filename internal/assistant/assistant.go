package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/genie-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultName         = "GenieBot Assistant"
	DefaultPollInterval = 500 * time.Millisecond

	// Instructions used when none are configured.
	fallbackInstructions = "You are an assistant."

	cleanupTimeout = 10 * time.Second
	listLimit      = 5
)

var (
	// ErrNotReady is returned by Complete before Ensure has succeeded.
	ErrNotReady = errors.New("assistant: remote assistant not ensured")
	// ErrRunUnsuccessful is returned when a run ends failed, expired or cancelled.
	ErrRunUnsuccessful = errors.New("assistant: run did not complete")
	// ErrReplyUnavailable is returned when a run completed but its reply
	// could not be read back.
	ErrReplyUnavailable = errors.New("assistant: reply unavailable")
)

// API is the subset of the OpenAI client the gateway uses; *openai.Client
// satisfies it.
type API interface {
	CreateAssistant(ctx context.Context, request openai.AssistantRequest) (openai.Assistant, error)
	ModifyAssistant(ctx context.Context, assistantID string, request openai.AssistantRequest) (openai.Assistant, error)

	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	DeleteThread(ctx context.Context, threadID string) (openai.ThreadDeleteResponse, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)

	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	CancelRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
}

type Config struct {
	Model        string
	Name         string
	Instructions string

	PollInterval time.Duration
	// PollTimeout bounds how long one run is polled. Zero means no bound;
	// the caller's context still stops polling.
	PollTimeout time.Duration
}

// Gateway runs single-turn conversations against one reusable remote
// assistant. Every Complete call uses its own throwaway remote thread.
type Gateway struct {
	api    API
	store  storage.AssistantStorage
	config Config
	logger *zap.Logger

	mu          sync.RWMutex
	assistantID string
}

func New(api API, store storage.AssistantStorage, config Config, logger *zap.Logger) *Gateway {
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Instructions == "" {
		config.Instructions = fallbackInstructions
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Gateway{
		api:    api,
		store:  store,
		config: config,
		logger: logger,
	}
}

// NewOpenAIGateway builds a Gateway on the real OpenAI client.
func NewOpenAIGateway(apiKey string, store storage.AssistantStorage, config Config, logger *zap.Logger) *Gateway {
	return New(openai.NewClient(apiKey), store, config, logger)
}

// Ensure resolves the remote assistant: the persisted one is refreshed in
// place with the current model and instructions, otherwise a new one is
// created and its id persisted. Calling it again is harmless.
func (g *Gateway) Ensure(ctx context.Context) (string, error) {
	req := g.assistantRequest()

	storedID, ok, err := g.store.GetAssistantID(ctx)
	if err != nil {
		g.logger.Warn("Failed to read persisted assistant id", zap.Error(err))
	}
	if ok {
		updated, err := g.api.ModifyAssistant(ctx, storedID, req)
		if err == nil {
			g.setAssistantID(updated.ID)
			g.logger.Info("Reusing remote assistant",
				zap.String("assistant_id", updated.ID),
				zap.String("model", g.config.Model))
			return updated.ID, nil
		}
		g.logger.Warn("Failed to update persisted assistant, creating a new one",
			zap.Error(err),
			zap.String("assistant_id", storedID))
	}

	created, err := g.api.CreateAssistant(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create assistant: %w", err)
	}
	if err := g.store.SetAssistantID(ctx, created.ID); err != nil {
		return "", fmt.Errorf("failed to persist assistant id %s: %w", created.ID, err)
	}
	g.setAssistantID(created.ID)

	g.logger.Info("Created remote assistant",
		zap.String("assistant_id", created.ID),
		zap.String("model", g.config.Model))
	return created.ID, nil
}

// AssistantID returns the ensured assistant id, or "" before Ensure.
func (g *Gateway) AssistantID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.assistantID
}

func (g *Gateway) setAssistantID(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assistantID = id
}

func (g *Gateway) assistantRequest() openai.AssistantRequest {
	name := g.config.Name
	instructions := g.config.Instructions
	return openai.AssistantRequest{
		Model:        g.config.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools: []openai.AssistantTool{
			{Type: openai.AssistantToolTypeFileSearch},
		},
	}
}
