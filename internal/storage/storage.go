package storage

import "context"

const (
	keyAssistantID = "assistant_id"
	keyChannelID   = "genie_channel_id"
)

type Storage interface {
	Close() error

	// Embed the settings the bot persists across restarts
	ChannelStorage
	AssistantStorage
}

// ChannelStorage persists the single channel the bot is restricted to.
// A missing or unreadable value is reported as ok == false, not as an error.
type ChannelStorage interface {
	GetChannelID(ctx context.Context) (id string, ok bool, err error)
	SetChannelID(ctx context.Context, id string) error
}

// AssistantStorage persists the id of the remote assistant resource.
type AssistantStorage interface {
	GetAssistantID(ctx context.Context) (id string, ok bool, err error)
	SetAssistantID(ctx context.Context, id string) error
}
