package router

import (
	"context"
	"strings"

	"github.com/xaenox/genie-bot/internal/models"
	"go.uber.org/zap"
)

// Reasons a message is ignored.
const (
	IgnoreBotAuthor    = "bot_author"
	IgnoreEmptyContent = "empty_content"
	IgnoreNotAllowed   = "channel_not_allowed"
)

// Platform is the part of the chat platform the router drives.
type Platform interface {
	// CreatePrivateThread opens a private, non-invitable thread in parentID.
	CreatePrivateThread(ctx context.Context, parentID, name string) (models.Target, error)
	AddThreadMember(ctx context.Context, threadID, userID string) error
}

// Decision is the outcome of routing one message.
type Decision struct {
	Ignored bool
	Reason  string

	Target        models.Target
	CreatedThread bool
}

type Router struct {
	platform       Platform
	allowList      *AllowList
	threadTemplate string
	logger         *zap.Logger
}

func New(platform Platform, allowList *AllowList, threadTemplate string, logger *zap.Logger) *Router {
	if strings.TrimSpace(threadTemplate) == "" {
		threadTemplate = DefaultThreadNameTemplate
	}
	return &Router{
		platform:       platform,
		allowList:      allowList,
		threadTemplate: threadTemplate,
		logger:         logger,
	}
}

// Route decides whether msg is answered and where the reply goes. Platform
// failures never abort routing, they degrade to replying in place.
func (r *Router) Route(ctx context.Context, msg models.IncomingMessage) Decision {
	if msg.AuthorIsBot {
		return ignore(IgnoreBotAuthor)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return ignore(IgnoreEmptyContent)
	}

	parentID := ""
	if msg.InThread() {
		parentID = msg.ParentID
	}
	if !r.allowList.Allows(msg.ChannelID, parentID) {
		return ignore(IgnoreNotAllowed)
	}

	if msg.ChannelKind != models.ChannelText {
		return Decision{Target: models.ChannelTarget(msg)}
	}

	name := FormatThreadName(r.threadTemplate, NameParams{
		Author:    msg.AuthorName,
		MessageID: msg.ID,
		Channel:   channelLabel(msg),
		UserID:    msg.AuthorID,
	})

	thread, err := r.platform.CreatePrivateThread(ctx, msg.ChannelID, name)
	if err != nil {
		r.logger.Warn("Could not create private thread, replying in channel",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("channel_id", msg.ChannelID))
		return Decision{Target: models.ChannelTarget(msg)}
	}

	if err := r.platform.AddThreadMember(ctx, thread.ID, msg.AuthorID); err != nil {
		r.logger.Warn("Could not add author to private thread",
			zap.Error(err),
			zap.String("thread_id", thread.ID),
			zap.String("user_id", msg.AuthorID))
	}

	r.logger.Info("Created private thread",
		zap.String("thread_name", thread.Name),
		zap.String("thread_id", thread.ID),
		zap.String("message_id", msg.ID))

	return Decision{Target: thread, CreatedThread: true}
}

func ignore(reason string) Decision {
	return Decision{Ignored: true, Reason: reason}
}

func channelLabel(msg models.IncomingMessage) string {
	if msg.ChannelName != "" {
		return msg.ChannelName
	}
	return msg.ChannelID
}
