package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/xaenox/genie-bot/internal/conversation"
	"github.com/xaenox/genie-bot/internal/models"
	"github.com/xaenox/genie-bot/internal/router"
	"go.uber.org/zap"
)

// Discord shows a typing indicator for about ten seconds per trigger.
const typingRefresh = 8 * time.Second

// Replier produces the reply text for one question. It must not fail.
type Replier interface {
	Reply(ctx context.Context, authorLabel, userText string) string
}

// Bot translates Discord events into router and conversation calls.
type Bot struct {
	session   *discordgo.Session
	router    *router.Router
	allowList *router.AllowList
	replier   Replier
	messenger Messenger
	logger    *zap.Logger

	typingRefresh time.Duration

	ctx      context.Context
	inflight sync.WaitGroup
}

func New(token string, allowList *router.AllowList, replier Replier, threadTemplate string, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	platform := &discordPlatform{session: session}
	b := newBot(router.New(platform, allowList, threadTemplate, logger), allowList, replier, platform, logger)
	b.session = session
	return b, nil
}

func newBot(r *router.Router, allowList *router.AllowList, replier Replier, messenger Messenger, logger *zap.Logger) *Bot {
	return &Bot{
		router:        r,
		allowList:     allowList,
		replier:       replier,
		messenger:     messenger,
		logger:        logger,
		typingRefresh: typingRefresh,
		ctx:           context.Background(),
	}
}

// Start connects to Discord and blocks until ctx is cancelled. Events are
// dispatched one at a time; each accepted message is answered on its own
// goroutine, and Start waits for those before returning.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	b.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	b.session.SyncEvents = true

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}

	<-ctx.Done()
	b.logger.Info("Disconnecting from Discord")
	err := b.session.Close()
	b.inflight.Wait()
	return err
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in",
		zap.String("user", r.User.String()),
		zap.String("user_id", r.User.ID),
		zap.Int("guilds", len(r.Guilds)))

	b.registerCommands(s, r.Guilds)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.handleMessage(b.ctx, b.resolve(s, m.Message))
	}()
}

// resolve converts m, degrading to a channel-less view if that panics so
// the message can still be answered where it was posted.
func (b *Bot) resolve(s *discordgo.Session, m *discordgo.Message) (msg models.IncomingMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while resolving message",
				zap.Any("panic", r),
				zap.String("message_id", m.ID),
				zap.Stack("stack"))
			msg = bareIncoming(m)
		}
	}()
	return b.incoming(s, m)
}

// bareIncoming is the message without channel details.
func bareIncoming(m *discordgo.Message) models.IncomingMessage {
	msg := models.IncomingMessage{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		ChannelKind: models.ChannelOther,
		Content:     m.Content,
		AuthorIsBot: true,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		msg.AuthorLabel = m.Author.Username
		msg.AuthorIsBot = m.Author.Bot
	}
	return msg
}

// incoming resolves the message's channel from the state cache, falling
// back to the API.
func (b *Bot) incoming(s *discordgo.Session, m *discordgo.Message) models.IncomingMessage {
	ch, err := s.State.Channel(m.ChannelID)
	if err != nil {
		ch, err = s.Channel(m.ChannelID, discordgo.WithContext(b.ctx))
		if err != nil {
			b.logger.Warn("Failed to resolve channel",
				zap.Error(err),
				zap.String("channel_id", m.ChannelID))
			ch = nil
		}
	}

	selfID := ""
	if s.State.User != nil {
		selfID = s.State.User.ID
	}
	return toIncoming(m, ch, selfID)
}

// handleMessage is one reply task. Whatever happens, the author gets a
// reply or the failure to send one is logged.
func (b *Bot) handleMessage(ctx context.Context, msg models.IncomingMessage) {
	logger := b.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("message_id", msg.ID))

	var (
		target models.Target
		routed bool
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("Panic while handling message",
			zap.Any("panic", r),
			zap.Bool("routed", routed),
			zap.Stack("stack"))
		if !routed {
			if !b.answerable(msg) {
				return
			}
			target = models.ChannelTarget(msg)
		}
		b.deliver(ctx, logger, target, msg, conversation.ErrorReply)
	}()

	decision := b.router.Route(ctx, msg)
	if decision.Ignored {
		logger.Debug("Ignoring message", zap.String("reason", decision.Reason))
		return
	}
	target, routed = decision.Target, true

	reply := b.generate(ctx, target, msg)
	b.deliver(ctx, logger, target, msg, reply)
}

func (b *Bot) generate(ctx context.Context, target models.Target, msg models.IncomingMessage) string {
	release := b.holdTyping(ctx, target.ID)
	defer release()

	return b.replier.Reply(ctx, msg.AuthorLabel, strings.TrimSpace(msg.Content))
}

// answerable repeats the router's filters for a message whose routing did
// not finish.
func (b *Bot) answerable(msg models.IncomingMessage) bool {
	return !msg.AuthorIsBot &&
		strings.TrimSpace(msg.Content) != "" &&
		b.allowList.Allows(msg.ChannelID, msg.ParentID)
}

func (b *Bot) deliver(ctx context.Context, logger *zap.Logger, target models.Target, msg models.IncomingMessage, reply string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while sending reply",
				zap.Any("panic", r),
				zap.String("target_id", target.ID),
				zap.Stack("stack"))
		}
	}()

	kind := "channel"
	if target.IsThread {
		kind = "thread"
	}
	logger.Info("Sending reply",
		zap.String("target", kind),
		zap.String("target_id", target.ID),
		zap.Int("reply_len", len(reply)))

	// Deliver even while shutting down; the reply is already paid for.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := b.messenger.Send(sendCtx, target, msg, reply); err != nil {
		logger.Error("Failed to send reply to Discord",
			zap.Error(err),
			zap.String("target_id", target.ID))
	}
}

// holdTyping shows the typing indicator in channelID until the returned
// release function is called.
func (b *Bot) holdTyping(ctx context.Context, channelID string) (release func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.typingRefresh)
		defer ticker.Stop()

		for {
			if err := b.messenger.Typing(ctx, channelID); err != nil && ctx.Err() == nil {
				b.logger.Debug("Failed to trigger typing",
					zap.Error(err),
					zap.String("channel_id", channelID))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
