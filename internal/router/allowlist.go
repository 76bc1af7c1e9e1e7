package router

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xaenox/genie-bot/internal/storage"
	"go.uber.org/zap"
)

// AllowList is the set of channel ids the bot answers in. Empty means
// unrestricted. Set replaces the whole set and persists it first.
type AllowList struct {
	mu    sync.RWMutex
	ids   map[string]struct{}
	store storage.ChannelStorage
}

// LoadAllowList prefers the persisted channel and falls back to static.
func LoadAllowList(ctx context.Context, store storage.ChannelStorage, static []string, logger *zap.Logger) *AllowList {
	a := &AllowList{
		ids:   make(map[string]struct{}),
		store: store,
	}

	id, ok, err := store.GetChannelID(ctx)
	if err != nil {
		logger.Warn("Failed to load persisted channel, using static allow-list",
			zap.Error(err))
	}
	if ok {
		a.ids[id] = struct{}{}
		logger.Info("Using persisted channel", zap.String("channel_id", id))
		return a
	}

	for _, id := range static {
		if id != "" {
			a.ids[id] = struct{}{}
		}
	}
	logger.Info("Using static allow-list", zap.Strings("channel_ids", a.IDs()))
	return a
}

// Allows reports whether a message in channelID, or in a thread whose parent
// is parentID, may be answered.
func (a *AllowList) Allows(channelID, parentID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.ids) == 0 {
		return true
	}
	if _, ok := a.ids[channelID]; ok {
		return true
	}
	if parentID != "" {
		if _, ok := a.ids[parentID]; ok {
			return true
		}
	}
	return false
}

// Set makes channelID the only allowed channel. The in-memory set is left
// untouched if persisting fails.
func (a *AllowList) Set(ctx context.Context, channelID string) error {
	if err := a.store.SetChannelID(ctx, channelID); err != nil {
		return fmt.Errorf("failed to persist channel %s: %w", channelID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.ids = map[string]struct{}{channelID: {}}
	return nil
}

func (a *AllowList) IDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.ids))
	for id := range a.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
