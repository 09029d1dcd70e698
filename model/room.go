package model

import (
	"errors"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// Author is the account that wrote a message, resolved as far as the
// transport could.
type Author struct {
	ID          string
	Tag         string
	DisplayName string
	AvatarURL   string
	Bot         bool
}

func NewAuthor(id string) *Author {
	return &Author{
		ID:          id,
		Tag:         "Unknown",
		DisplayName: "Unknown",
	}
}

// Name returns the guild-scoped display name, falling back to the account tag.
func (a Author) Name() string {
	if len(a.DisplayName) != 0 {
		return a.DisplayName
	}
	if len(a.Tag) != 0 {
		return a.Tag
	}
	return a.ID
}

type ChannelType int

const (
	ChannelTypeText ChannelType = iota
	ChannelTypeDM
	ChannelTypeVoice
	ChannelTypeCategory
	ChannelTypeNews
	ChannelTypeThread
	ChannelTypeForum
	ChannelTypeOther
)

func (t ChannelType) String() string {
	switch t {
	case ChannelTypeText:
		return "Text"
	case ChannelTypeDM:
		return "DM"
	case ChannelTypeVoice:
		return "Voice"
	case ChannelTypeCategory:
		return "Category"
	case ChannelTypeNews:
		return "News"
	case ChannelTypeThread:
		return "Thread"
	case ChannelTypeForum:
		return "Forum"
	}
	return "Unknown"
}

type Channel struct {
	ID      string
	GuildID string
	Name    string
	Type    ChannelType
	// ParentID is the channel a thread hangs off, empty otherwise.
	ParentID string
}

func NewChannel(id string) *Channel {
	return &Channel{ID: id, Type: ChannelTypeOther}
}

// IsText reports whether messages can be fetched from and quoted out of the channel.
func (c Channel) IsText() bool {
	switch c.Type {
	case ChannelTypeText, ChannelTypeNews, ChannelTypeThread:
		return true
	}
	return false
}

// Label is the channel's display name, or its raw id when the name is unknown.
func (c Channel) Label() string {
	if len(strings.TrimSpace(c.Name)) != 0 {
		return c.Name
	}
	return c.ID
}
