package model

import (
	"fmt"
	"time"
)

const PermalinkHost = "discord.com"

// IncomingMessage is a freshly created message as delivered by the gateway.
type IncomingMessage struct {
	ID                string
	AuthorID          string
	AuthorTag         string
	AuthorDisplayName string
	AuthorAvatarURL   string
	AuthorIsBot       bool
	ChannelID         string
	GuildID           string
	Content           string
	CreatedAt         time.Time
	AttachmentURLs    []string
	Deletable         bool
	Permalink         string
}

// SpeakerName is the name the republished message is attributed to.
func (m IncomingMessage) SpeakerName() string {
	return Author{ID: m.AuthorID, Tag: m.AuthorTag, DisplayName: m.AuthorDisplayName}.Name()
}

// Message is a message record returned by history or direct lookups.
type Message struct {
	ID             string
	ChannelID      string
	ChannelName    string
	GuildID        string
	Author         Author
	Content        string
	CreatedAt      time.Time
	AttachmentURLs []string
}

func (m Message) Permalink() string {
	return Permalink(m.GuildID, m.ChannelID, m.ID)
}

// Permalink builds the canonical URL of a message. Direct messages use "@me"
// in place of a guild id.
func Permalink(guildID, channelID, messageID string) string {
	if len(guildID) == 0 {
		guildID = "@me"
	}
	return fmt.Sprintf("https://%s/channels/%s/%s/%s", PermalinkHost, guildID, channelID, messageID)
}
