package storage

import (
	"context"
	"sync"
)

type MemoryStorage struct {
	mu          sync.RWMutex
	channelID   string
	assistantID string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) GetChannelID(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.channelID, s.channelID != "", nil
}

func (s *MemoryStorage) SetChannelID(ctx context.Context, id string) error {
	id, ok := normalizeChannelID(id)
	if !ok {
		return ErrInvalidChannelID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.channelID = id
	return nil
}

func (s *MemoryStorage) GetAssistantID(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.assistantID, s.assistantID != "", nil
}

func (s *MemoryStorage) SetAssistantID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assistantID = id
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
