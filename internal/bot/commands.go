package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	genieChannelCommandName = "genie_channel"
	channelOptionName       = "channel"
)

var adminPermission int64 = discordgo.PermissionAdministrator

var genieChannelCommand = &discordgo.ApplicationCommand{
	Name:                     genieChannelCommandName,
	Description:              "Set the channel where Genie will respond and listen",
	DefaultMemberPermissions: &adminPermission,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         channelOptionName,
			Description:  "The channel to use for Genie replies",
			Required:     true,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
	},
}

// registerCommands creates the slash command globally and in every guild the
// bot is in, so it is usable before global propagation finishes.
func (b *Bot) registerCommands(s *discordgo.Session, guilds []*discordgo.Guild) {
	appID := s.State.User.ID
	if _, err := s.ApplicationCommandCreate(appID, "", genieChannelCommand); err != nil {
		b.logger.Warn("Failed to register global command",
			zap.Error(err),
			zap.String("command", genieChannelCommandName))
	}
	for _, g := range guilds {
		if _, err := s.ApplicationCommandCreate(appID, g.ID, genieChannelCommand); err != nil {
			b.logger.Warn("Failed to register guild command",
				zap.Error(err),
				zap.String("command", genieChannelCommandName),
				zap.String("guild_id", g.ID))
		}
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != genieChannelCommandName {
		return
	}

	isAdmin := i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
	channelID, channelName := selectedChannel(data)

	content := b.setGenieChannel(b.ctx, isAdmin, channelID, channelName)

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("Failed to respond to command",
			zap.Error(err),
			zap.String("command", genieChannelCommandName))
	}
}

// setGenieChannel applies the admin command and returns the private
// response shown to the caller.
func (b *Bot) setGenieChannel(ctx context.Context, isAdmin bool, channelID, channelName string) string {
	if !isAdmin {
		return "Admin only."
	}
	if channelID == "" {
		return "Pick a text channel for Genie."
	}

	if err := b.allowList.Set(ctx, channelID); err != nil {
		b.logger.Error("Failed to set Genie channel",
			zap.Error(err),
			zap.String("channel_id", channelID))
		return "Could not save the Genie channel. Please try again."
	}

	b.logger.Info("Genie channel set", zap.String("channel_id", channelID))
	if channelName == "" {
		channelName = channelID
	}
	return "Genie channel set to #" + channelName + "."
}

func selectedChannel(data discordgo.ApplicationCommandInteractionData) (id, name string) {
	for _, opt := range data.Options {
		if opt.Name != channelOptionName || opt.Type != discordgo.ApplicationCommandOptionChannel {
			continue
		}
		id, _ = opt.Value.(string)
	}
	if id != "" && data.Resolved != nil {
		if ch, ok := data.Resolved.Channels[id]; ok && ch != nil {
			name = ch.Name
		}
	}
	return id, name
}
