package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStorage keeps settings in a single JSON document on disk.
type FileStorage struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileStorage(path string, logger *zap.Logger) *FileStorage {
	return &FileStorage{
		path:   path,
		logger: logger,
	}
}

func (s *FileStorage) GetChannelID(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.load().channelID()
	return id, ok, nil
}

func (s *FileStorage) SetChannelID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if err := doc.setChannelID(id); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *FileStorage) GetAssistantID(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.load().assistantID()
	return id, ok, nil
}

func (s *FileStorage) SetAssistantID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if err := doc.setAssistantID(id); err != nil {
		return fmt.Errorf("failed to encode assistant id: %w", err)
	}
	return s.save(doc)
}

func (s *FileStorage) Close() error {
	// Nothing to close, every write is flushed
	return nil
}

// load never fails: a missing or corrupt file reads as an empty document.
func (s *FileStorage) load() document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read settings file, using empty settings",
				zap.Error(err),
				zap.String("path", s.path))
		}
		return document{}
	}

	doc, err := decodeDocument(data)
	if err != nil {
		s.logger.Warn("Settings file is corrupt, using empty settings",
			zap.Error(err),
			zap.String("path", s.path))
		return document{}
	}
	return doc
}

func (s *FileStorage) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file %s: %w", s.path, err)
	}
	return nil
}
