package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"quote/model"
	"quote/utils"
)

// maxHistory is the most messages Discord returns for one history request.
const maxHistory = 100

func (a *App) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(a.cli.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)), "delete message")
}

func (a *App) ListRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	limit = utils.IfElse(limit <= 0 || limit > maxHistory, maxHistory, limit)
	messages, err := a.cli.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, "list messages")
	}
	channel := a.GetChannelInfo(ctx, channelID)
	// Nicknames are left to the resolver, which only needs the matched author.
	return utils.Map(messages, func(m *discordgo.Message) model.Message {
		return toMessage(m, channel)
	}), nil
}

func (a *App) FetchMessage(ctx context.Context, channelID, messageID string) (*model.Message, error) {
	m, err := a.cli.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, "fetch message")
	}
	msg := toMessage(m, a.GetChannelInfo(ctx, channelID))
	return &msg, nil
}

func (a *App) FetchChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	a.lock.RLock()
	v := a.ChannelInfo[channelID]
	a.lock.RUnlock()
	if v != nil {
		c := *v
		return &c, nil
	}
	channel, err := a.cli.State.Channel(channelID)
	if err != nil {
		if channel, err = a.cli.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
			return nil, mapError(err, "fetch channel")
		}
	}
	c := toChannel(channel)
	a.lock.Lock()
	a.ChannelInfo[c.ID] = &c
	a.lock.Unlock()
	return &c, nil
}

// GetChannelInfo never fails; unknown channels come back with only their id.
func (a *App) GetChannelInfo(ctx context.Context, channelID string) *model.Channel {
	v, err := a.FetchChannel(ctx, channelID)
	if err != nil {
		a.log.Debug().Err(err).Str("channel_id", channelID).Msg("Failed to get channel info")
	}
	return utils.Default(v, func(v *model.Channel) bool {
		return v != nil
	}, model.NewChannel(channelID))
}

func (a *App) forgetChannel(channelID string) {
	a.lock.Lock()
	delete(a.ChannelInfo, channelID)
	a.lock.Unlock()
}

// webhookTarget maps a channel to the channel owning its webhooks. Threads
// post through their parent's webhook.
func (a *App) webhookTarget(ctx context.Context, channelID string) (parentID, threadID string) {
	channel := a.GetChannelInfo(ctx, channelID)
	if channel.Type == model.ChannelTypeThread && len(channel.ParentID) != 0 {
		return channel.ParentID, channel.ID
	}
	return channelID, ""
}

func (a *App) ListHandles(ctx context.Context, channelID string) ([]model.Handle, error) {
	parentID, threadID := a.webhookTarget(ctx, channelID)
	hooks, err := a.cli.ChannelWebhooks(parentID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, "list webhooks")
	}
	return utils.Map(hooks, func(hook *discordgo.Webhook) model.Handle {
		h := toHandle(hook)
		h.ThreadID = threadID
		return h
	}), nil
}

func (a *App) CreateHandle(ctx context.Context, channelID, name string) (*model.Handle, error) {
	parentID, threadID := a.webhookTarget(ctx, channelID)
	hook, err := a.cli.WebhookCreate(parentID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, "create webhook")
	}
	a.log.Info().Str("channel_id", parentID).Str("webhook_id", hook.ID).Msg("Created webhook")
	h := toHandle(hook)
	h.ThreadID = threadID
	return &h, nil
}

func (a *App) Publish(ctx context.Context, handle model.Handle, pub model.Publication) error {
	var err error
	if len(handle.ThreadID) != 0 {
		_, err = a.cli.WebhookThreadExecute(handle.ID, handle.Token, false, handle.ThreadID, toWebhookParams(pub), discordgo.WithContext(ctx))
	} else {
		_, err = a.cli.WebhookExecute(handle.ID, handle.Token, false, toWebhookParams(pub), discordgo.WithContext(ctx))
	}
	return mapError(err, "execute webhook")
}

// MemberName looks up the guild nickname, preferring the state cache.
func (a *App) MemberName(ctx context.Context, guildID, userID string) (string, error) {
	member, err := a.cli.State.Member(guildID, userID)
	if err != nil {
		if member, err = a.cli.GuildMember(guildID, userID, discordgo.WithContext(ctx)); err != nil {
			return "", mapError(err, "fetch member")
		}
		if err = a.cli.State.MemberAdd(member); err != nil {
			a.log.Debug().Err(err).Msg("Failed to cache member")
		}
	}
	return member.Nick, nil
}
