package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/xaenox/genie-bot/internal/models"
)

const (
	discordMaxMsgLen = 2000

	// Minutes of inactivity before Discord archives a thread (one day).
	threadAutoArchive = 1440
)

// Messenger delivers replies and typing indicators.
type Messenger interface {
	Typing(ctx context.Context, channelID string) error
	Send(ctx context.Context, target models.Target, replyTo models.IncomingMessage, content string) error
}

// discordPlatform adapts a discordgo session to router.Platform and Messenger.
type discordPlatform struct {
	session *discordgo.Session
}

func (p *discordPlatform) CreatePrivateThread(ctx context.Context, parentID, name string) (models.Target, error) {
	ch, err := p.session.ThreadStartComplex(parentID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadAutoArchive,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return models.Target{}, fmt.Errorf("discord thread start in %s: %w", parentID, err)
	}

	parent := ch.ParentID
	if parent == "" {
		parent = parentID
	}
	return models.Target{
		ID:       ch.ID,
		ParentID: parent,
		Name:     ch.Name,
		IsThread: true,
	}, nil
}

func (p *discordPlatform) AddThreadMember(ctx context.Context, threadID, userID string) error {
	if err := p.session.ThreadMemberAdd(threadID, userID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord thread member add %s: %w", threadID, err)
	}
	return nil
}

func (p *discordPlatform) Typing(ctx context.Context, channelID string) error {
	return p.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
}

// Send posts content to target. Replies into a thread are plain messages;
// replies in a channel reference the triggering message without pinging
// its author.
func (p *discordPlatform) Send(ctx context.Context, target models.Target, replyTo models.IncomingMessage, content string) error {
	for i, chunk := range splitMessage(content, discordMaxMsgLen) {
		send := &discordgo.MessageSend{Content: chunk}
		if i == 0 && !target.IsThread && replyTo.ChannelID == target.ID {
			send.Reference = &discordgo.MessageReference{
				MessageID: replyTo.ID,
				ChannelID: replyTo.ChannelID,
			}
			send.AllowedMentions = &discordgo.MessageAllowedMentions{RepliedUser: false}
		}
		if _, err := p.session.ChannelMessageSendComplex(target.ID, send, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord send to %s: %w", target.ID, err)
		}
	}
	return nil
}

// channelKind classifies a channel; nil means it could not be resolved.
func channelKind(ch *discordgo.Channel) models.ChannelKind {
	if ch == nil {
		return models.ChannelOther
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText:
		return models.ChannelText
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return models.ChannelThread
	default:
		return models.ChannelOther
	}
}

// toIncoming reduces a discordgo message and its channel to the routing model.
func toIncoming(m *discordgo.Message, ch *discordgo.Channel, selfID string) models.IncomingMessage {
	msg := models.IncomingMessage{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		ChannelKind: channelKind(ch),
		Content:     m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		msg.AuthorLabel = m.Author.String()
		msg.AuthorIsBot = m.Author.Bot || (selfID != "" && m.Author.ID == selfID)
	} else {
		// Without an author there is nobody to answer.
		msg.AuthorIsBot = true
	}
	if ch != nil {
		msg.ChannelName = ch.Name
		if msg.ChannelKind == models.ChannelThread {
			msg.ParentID = ch.ParentID
		}
	}
	return msg
}
