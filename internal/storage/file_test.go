package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestFileStorage(t *testing.T) (*FileStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".geniebot.json")
	return NewFileStorage(path, zap.NewNop()), path
}

func TestFileStorage_MissingFileIsEmpty(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	id, ok, err := s.GetChannelID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	id, ok, err = s.GetAssistantID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestFileStorage_CorruptFileDegradesToNoValue(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	path := filepath.Join(t.TempDir(), ".geniebot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"genie_channel_id": 12`), 0o644))
	s := NewFileStorage(path, zap.New(core))

	id, ok, err := s.GetChannelID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, 1, logs.FilterMessage("Settings file is corrupt, using empty settings").Len())

	// Writing over a corrupt file recovers it
	require.NoError(t, s.SetChannelID(context.Background(), "42"))
	id, ok, err = s.GetChannelID(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", id)
}

func TestFileStorage_SetChannelTwiceReplaces(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SetChannelID(ctx, "111"))
	require.NoError(t, s.SetChannelID(ctx, "222"))

	id, ok, err := s.GetChannelID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "222", id)
}

func TestFileStorage_ChannelIDWrittenAsInteger(t *testing.T) {
	s, path := newTestFileStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SetChannelID(ctx, "1234567890123456789"))
	require.NoError(t, s.SetAssistantID(ctx, "asst_abc"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "1234567890123456789", string(raw["genie_channel_id"]))
	assert.Equal(t, `"asst_abc"`, string(raw["assistant_id"]))
}

func TestFileStorage_ReadsDigitStringChannelID(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".geniebot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"genie_channel_id": "987"}`), 0o644))
	s := NewFileStorage(path, zap.NewNop())

	id, ok, err := s.GetChannelID(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "987", id)
}

func TestFileStorage_IgnoresMalformedChannelID(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".geniebot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"genie_channel_id": "general"}`), 0o644))
	s := NewFileStorage(path, zap.NewNop())

	_, ok, err := s.GetChannelID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorage_KeepsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".geniebot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"other": {"a": 1}}`), 0o644))
	s := NewFileStorage(path, zap.NewNop())

	require.NoError(t, s.SetAssistantID(context.Background(), "asst_1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"other": {"a": 1}, "assistant_id": "asst_1"}`, string(data))
}

func TestFileStorage_RejectsInvalidChannelID(t *testing.T) {
	s, path := newTestFileStorage(t)

	err := s.SetChannelID(context.Background(), "12ab")
	assert.ErrorIs(t, err, ErrInvalidChannelID)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStorage_SurvivesReopen(t *testing.T) {
	s, path := newTestFileStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SetChannelID(ctx, "555"))

	reopened := NewFileStorage(path, zap.NewNop())
	id, ok, err := reopened.GetChannelID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "555", id)
}
