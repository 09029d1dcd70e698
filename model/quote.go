package model

import "time"

// ResolvedQuote is the message a reference turned out to point at.
type ResolvedQuote struct {
	SourceMessageID   string
	AuthorDisplayName string
	AuthorAvatarURL   string
	ChannelLabel      string
	Content           string
	CreatedAt         time.Time
	Permalink         string
	AttachmentURL     string
}

// QuoteCard is the rendered embed of a ResolvedQuote.
type QuoteCard struct {
	Title         string
	AuthorName    string
	AuthorIconURL string
	Description   string
	URL           string
	Timestamp     time.Time
	ImageURL      string
	Footer        string
}

// Handle is a channel-bound webhook able to post under any name and avatar.
// Handle is a webhook able to post into ChannelID. Threads have no webhooks
// of their own: their handle is the parent channel's webhook with ThreadID
// set to the thread.
type Handle struct {
	ID        string
	Token     string
	ChannelID string
	ThreadID  string
	OwnerID   string
	Name      string
}

type Publication struct {
	Content          string
	Cards            []QuoteCard
	SpeakerName      string
	SpeakerAvatarURL string
}
