package quote

import (
	"context"
	"errors"

	"quote/model"
)

// Publisher replaces a soliciting message with a republished copy that is
// attributed to the original author and carries the quote cards.
//
// The webhook is acquired before anything is deleted, so a channel the bot
// cannot post into leaves the message alone. Delete and publish are not
// atomic: when the publish fails the original content is gone, the returned
// Failure has ContentLost set and nothing is retried.
type Publisher struct {
	transport Transport
	handles   *HandleCache
}

func NewPublisher(transport Transport, handles *HandleCache) *Publisher {
	return &Publisher{transport: transport, handles: handles}
}

func (p *Publisher) Mimic(ctx context.Context, msg model.IncomingMessage, content string, cards []model.QuoteCard) error {
	if !msg.Deletable {
		return fail(PermissionDenied, "delete", nil)
	}
	handle, err := p.handles.Get(ctx, msg.ChannelID)
	if err != nil {
		return fail(TransportFailure, "acquire handle", err)
	}
	if err = p.transport.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		if errors.Is(err, model.ErrPermissionDenied) {
			return fail(PermissionDenied, "delete", err)
		}
		return fail(TransportFailure, "delete", err)
	}

	err = p.transport.Publish(ctx, handle, model.Publication{
		Content:          content,
		Cards:            cards,
		SpeakerName:      msg.SpeakerName(),
		SpeakerAvatarURL: msg.AuthorAvatarURL,
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			p.handles.Evict(msg.ChannelID)
		}
		return lost("publish", err)
	}
	return nil
}

func lost(op string, err error) *Failure {
	f := fail(TransportFailure, op, err)
	f.ContentLost = true
	return f
}
