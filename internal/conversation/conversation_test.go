package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/genie-bot/internal/assistant"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCompleter struct {
	reply assistant.Reply
	err   error
	panic any

	instructions string
	messages     []assistant.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, instructions string, messages []assistant.Message) (assistant.Reply, error) {
	f.instructions = instructions
	f.messages = messages
	if f.panic != nil {
		panic(f.panic)
	}
	return f.reply, f.err
}

func newTestService(c Completer) (*Service, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewService(c, "you advise on plans", zap.New(core)), logs
}

func TestReply_ReturnsTrimmedText(t *testing.T) {
	c := &fakeCompleter{reply: assistant.Reply{Text: "  Pick the team plan.\n", Status: assistant.StatusCompleted}}
	s, _ := newTestService(c)

	got := s.Reply(context.Background(), "alice#0001", "which plan?")

	assert.Equal(t, "Pick the team plan.", got)
	assert.Equal(t, "you advise on plans", c.instructions)
	require.Len(t, c.messages, 1)
	assert.Equal(t, "user", c.messages[0].Role)
	assert.Equal(t, "Question from agent 'alice#0001':\n\nwhich plan?", c.messages[0].Content)
}

func TestReply_EmptyTextUsesNoRecommendationFallback(t *testing.T) {
	s, logs := newTestService(&fakeCompleter{reply: assistant.Reply{Status: assistant.StatusCompleted}})

	assert.Equal(t, NoRecommendationReply, s.Reply(context.Background(), "a", "q"))
	assert.Equal(t, 1, logs.FilterMessage("Assistant returned no text").Len())
}

func TestReply_UnsuccessfulRunUsesNoRecommendationFallback(t *testing.T) {
	err := fmt.Errorf("%w: run r ended expired", assistant.ErrRunUnsuccessful)
	s, _ := newTestService(&fakeCompleter{reply: assistant.Reply{Status: assistant.StatusExpired}, err: err})

	assert.Equal(t, NoRecommendationReply, s.Reply(context.Background(), "a", "q"))
}

func TestReply_UnreadableReplyUsesNoRecommendationFallback(t *testing.T) {
	err := fmt.Errorf("%w: thread t: %w", assistant.ErrReplyUnavailable, errors.New("502 bad gateway"))
	s, logs := newTestService(&fakeCompleter{reply: assistant.Reply{Status: assistant.StatusCompleted}, err: err})

	assert.Equal(t, NoRecommendationReply, s.Reply(context.Background(), "a", "q"))
	assert.Equal(t, 1, logs.FilterMessage("Run ended without a reply").Len())
	assert.Zero(t, logs.FilterMessage("Error generating reply").Len())
}

func TestReply_BackendErrorUsesErrorFallback(t *testing.T) {
	s, logs := newTestService(&fakeCompleter{err: errors.New("connection reset")})

	assert.Equal(t, ErrorReply, s.Reply(context.Background(), "a", "q"))
	assert.Equal(t, 1, logs.FilterMessage("Error generating reply").Len())
}

func TestReply_NotReadyUsesErrorFallback(t *testing.T) {
	s, _ := newTestService(&fakeCompleter{err: assistant.ErrNotReady})

	assert.Equal(t, ErrorReply, s.Reply(context.Background(), "a", "q"))
}

func TestReply_RecoversFromPanic(t *testing.T) {
	s, logs := newTestService(&fakeCompleter{panic: "nil map"})

	var got string
	require.NotPanics(t, func() {
		got = s.Reply(context.Background(), "a", "q")
	})
	assert.Equal(t, ErrorReply, got)
	assert.Equal(t, 1, logs.FilterMessage("Panic while generating reply").Len())
}
