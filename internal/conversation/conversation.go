package conversation

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/genie-bot/internal/assistant"
	"go.uber.org/zap"
)

const (
	NoRecommendationReply = "I couldn't produce a recommendation from the details provided."
	ErrorReply            = "I hit an unexpected error while generating a recommendation. " +
		"Please try again or provide a bit more detail about the client."
)

// Completer runs one isolated completion.
type Completer interface {
	Complete(ctx context.Context, instructions string, messages []assistant.Message) (assistant.Reply, error)
}

// Service turns a user question into reply text. It never fails: every
// error path yields one of the fallback replies.
type Service struct {
	completer    Completer
	instructions string
	logger       *zap.Logger
}

func NewService(completer Completer, instructions string, logger *zap.Logger) *Service {
	return &Service{
		completer:    completer,
		instructions: instructions,
		logger:       logger,
	}
}

func (s *Service) Reply(ctx context.Context, authorLabel, userText string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while generating reply",
				zap.Any("panic", r),
				zap.String("author", authorLabel),
				zap.Stack("stack"))
			reply = ErrorReply
		}
	}()

	messages := []assistant.Message{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: Prompt(authorLabel, userText),
		},
	}

	result, err := s.completer.Complete(ctx, s.instructions, messages)
	if err != nil {
		if assistant.IsNoReply(err) {
			s.logger.Warn("Run ended without a reply",
				zap.Error(err),
				zap.String("status", string(result.Status)),
				zap.String("author", authorLabel))
			return NoRecommendationReply
		}
		s.logger.Error("Error generating reply",
			zap.Error(err),
			zap.String("thread_id", result.ThreadID),
			zap.String("author", authorLabel))
		return ErrorReply
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		s.logger.Warn("Assistant returned no text",
			zap.String("thread_id", result.ThreadID),
			zap.String("run_id", result.RunID))
		return NoRecommendationReply
	}
	return text
}

// Prompt is the single user message posted for a question.
func Prompt(authorLabel, userText string) string {
	return "Question from agent '" + authorLabel + "':\n\n" + userText
}
