package quote

import (
	"context"

	"quote/model"
)

// Transport is the set of chat platform operations the quoting flow needs.
// Lookups that find nothing return an error wrapping model.ErrNotFound and
// refused operations one wrapping model.ErrPermissionDenied.
type Transport interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// ListRecentMessages returns at most limit messages, most recent first.
	ListRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error)
	FetchMessage(ctx context.Context, channelID, messageID string) (*model.Message, error)
	FetchChannel(ctx context.Context, channelID string) (*model.Channel, error)
	// MemberName returns the user's guild nickname, empty when none is set.
	MemberName(ctx context.Context, guildID, userID string) (string, error)
	// ListHandles and CreateHandle accept thread ids; the handles returned
	// belong to the parent channel and carry the thread id.
	ListHandles(ctx context.Context, channelID string) ([]model.Handle, error)
	CreateHandle(ctx context.Context, channelID, name string) (*model.Handle, error)
	Publish(ctx context.Context, handle model.Handle, pub model.Publication) error
}
