package discord

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"quote/model"
)

// Message limits enforced by Discord; exceeding any of them rejects the
// whole webhook execution.
const (
	avatarSize        = "64"
	maxUsernameLength = 80
	maxContentLength  = 2000
	maxTitleLength    = 256
	maxDescription    = 4096
	maxFooterLength   = 2048
	maxEmbeds         = 10
	maxEmbedTotal     = 6000
)

var reservedNameRgx = regexp.MustCompile(`(?i)discord|clyde`)

func toIncoming(m *discordgo.Message, deletable bool) model.IncomingMessage {
	in := model.IncomingMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
		Deletable: deletable,
		Permalink: model.Permalink(m.GuildID, m.ChannelID, m.ID),
	}
	if m.Author != nil {
		in.AuthorID = m.Author.ID
		in.AuthorTag = m.Author.String()
		in.AuthorIsBot = m.Author.Bot
		in.AuthorAvatarURL = m.Author.AvatarURL("")
	}
	if m.Member != nil {
		in.AuthorDisplayName = m.Member.Nick
	}
	for _, attachment := range m.Attachments {
		in.AttachmentURLs = append(in.AttachmentURLs, attachment.URL)
	}
	return in
}

func toMessage(m *discordgo.Message, channel *model.Channel) model.Message {
	msg := model.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if channel != nil {
		msg.ChannelName = channel.Name
		if len(msg.GuildID) == 0 {
			msg.GuildID = channel.GuildID
		}
	}
	if m.Author != nil {
		msg.Author = model.Author{
			ID:        m.Author.ID,
			Tag:       m.Author.String(),
			AvatarURL: m.Author.AvatarURL(avatarSize),
			Bot:       m.Author.Bot,
		}
	}
	if m.Member != nil {
		msg.Author.DisplayName = m.Member.Nick
	}
	for _, attachment := range m.Attachments {
		msg.AttachmentURLs = append(msg.AttachmentURLs, attachment.URL)
	}
	return msg
}

func toChannel(c *discordgo.Channel) model.Channel {
	return model.Channel{
		ID:       c.ID,
		GuildID:  c.GuildID,
		Name:     c.Name,
		Type:     channelType(c.Type),
		ParentID: c.ParentID,
	}
}

func channelType(t discordgo.ChannelType) model.ChannelType {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return model.ChannelTypeText
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return model.ChannelTypeDM
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return model.ChannelTypeVoice
	case discordgo.ChannelTypeGuildCategory:
		return model.ChannelTypeCategory
	case discordgo.ChannelTypeGuildNews:
		return model.ChannelTypeNews
	case discordgo.ChannelTypeGuildNewsThread, discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
		return model.ChannelTypeThread
	case discordgo.ChannelTypeGuildForum:
		return model.ChannelTypeForum
	}
	return model.ChannelTypeOther
}

func toHandle(w *discordgo.Webhook) model.Handle {
	h := model.Handle{
		ID:        w.ID,
		Token:     w.Token,
		ChannelID: w.ChannelID,
		Name:      w.Name,
	}
	if w.User != nil {
		h.OwnerID = w.User.ID
	}
	return h
}

func toWebhookParams(pub model.Publication) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content:   truncate(pub.Content, maxContentLength),
		Username:  sanitizeUsername(pub.SpeakerName),
		AvatarURL: pub.SpeakerAvatarURL,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	cards := pub.Cards
	if len(cards) > maxEmbeds {
		cards = cards[:maxEmbeds]
	}
	for _, card := range cards {
		params.Embeds = append(params.Embeds, toEmbed(card))
	}
	fitEmbeds(params.Embeds)
	return params
}

// fitEmbeds shortens descriptions until the embeds together stay within the
// per-message character budget. Short descriptions are settled first so
// their unused share goes to the longer ones.
func fitEmbeds(embeds []*discordgo.MessageEmbed) {
	budget := maxEmbedTotal
	for _, e := range embeds {
		budget -= runeLen(e.Title) + runeLen(e.Author.Name)
		if e.Footer != nil {
			budget -= runeLen(e.Footer.Text)
		}
	}
	order := make([]*discordgo.MessageEmbed, len(embeds))
	copy(order, embeds)
	sort.SliceStable(order, func(i, j int) bool {
		return runeLen(order[i].Description) < runeLen(order[j].Description)
	})
	for i, e := range order {
		share := max(budget, 0) / (len(order) - i)
		e.Description = truncate(e.Description, share)
		budget -= runeLen(e.Description)
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func toEmbed(card model.QuoteCard) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		URL:         card.URL,
		Title:       truncate(card.Title, maxTitleLength),
		Description: truncate(card.Description, maxDescription),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    truncate(card.AuthorName, maxTitleLength),
			IconURL: card.AuthorIconURL,
		},
	}
	if !card.Timestamp.IsZero() {
		embed.Timestamp = card.Timestamp.UTC().Format(time.RFC3339)
	}
	if len(card.Footer) != 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: truncate(card.Footer, maxFooterLength)}
	}
	if len(card.ImageURL) != 0 {
		embed.Image = &discordgo.MessageEmbedImage{URL: card.ImageURL}
	}
	return embed
}

// sanitizeUsername makes a display name acceptable as a webhook username,
// which must be 1-80 characters and may not contain "discord" or "clyde".
func sanitizeUsername(name string) string {
	name = reservedNameRgx.ReplaceAllStringFunc(strings.TrimSpace(name), func(s string) string {
		return s[:1] + "\u200b" + s[1:]
	})
	name = truncate(name, maxUsernameLength)
	if len(name) == 0 {
		return "Unknown"
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	return string(r[:n-1]) + "…"
}

// mapError translates REST failures into the model's sentinel errors.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownWebhook, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownMember:
				return errors.Wrapf(model.ErrNotFound, "%s: %v", op, err)
			case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeCannotSendMessagesToThisUser:
				return errors.Wrapf(model.ErrPermissionDenied, "%s: %v", op, err)
			}
		}
		if rest.Response != nil {
			switch rest.Response.StatusCode {
			case http.StatusNotFound:
				return errors.Wrapf(model.ErrNotFound, "%s: %v", op, err)
			case http.StatusForbidden:
				return errors.Wrapf(model.ErrPermissionDenied, "%s: %v", op, err)
			}
		}
	}
	return errors.Wrap(err, op)
}
