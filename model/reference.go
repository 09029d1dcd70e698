package model

import "fmt"

type ReferenceKind int

const (
	ReferenceTextFragment ReferenceKind = iota
	ReferenceMessageID
	ReferenceMessageURL
)

func (k ReferenceKind) String() string {
	switch k {
	case ReferenceTextFragment:
		return "TextFragment"
	case ReferenceMessageID:
		return "MessageID"
	case ReferenceMessageURL:
		return "MessageURL"
	}
	return "Unknown"
}

// Reference points at a message some other message is quoting. Which fields
// are set depends on Kind:
//
//	TextFragment: Text
//	MessageID:    MessageID
//	MessageURL:   GuildID, ChannelID, MessageID
type Reference struct {
	Kind      ReferenceKind
	Text      string
	GuildID   string
	ChannelID string
	MessageID string
}

func TextFragment(text string) Reference {
	return Reference{Kind: ReferenceTextFragment, Text: text}
}

func MessageIDRef(id string) Reference {
	return Reference{Kind: ReferenceMessageID, MessageID: id}
}

func MessageURLRef(guildID, channelID, messageID string) Reference {
	return Reference{Kind: ReferenceMessageURL, GuildID: guildID, ChannelID: channelID, MessageID: messageID}
}

func (r Reference) String() string {
	switch r.Kind {
	case ReferenceTextFragment:
		return fmt.Sprintf("text(%q)", r.Text)
	case ReferenceMessageID:
		return fmt.Sprintf("id(%s)", r.MessageID)
	case ReferenceMessageURL:
		return fmt.Sprintf("url(%s/%s/%s)", r.GuildID, r.ChannelID, r.MessageID)
	}
	return "unknown"
}
