package quote

import (
	"context"
	"errors"
	"strings"

	"quote/model"
	"quote/utils"
)

const DefaultHistoryLimit = 100

// Resolver finds the messages references point at. Text and id references
// are searched in the recent history of the soliciting channel, permalinks
// are fetched directly.
type Resolver struct {
	transport Transport
	limit     int
}

func NewResolver(transport Transport, historyLimit int) *Resolver {
	return &Resolver{
		transport: transport,
		limit:     utils.IfElse(historyLimit > 0, historyLimit, DefaultHistoryLimit),
	}
}

// ResolveAll resolves every reference independently and returns the hits in
// order. When nothing resolves the first failure is returned.
func (r *Resolver) ResolveAll(ctx context.Context, msg model.IncomingMessage, refs []model.Reference) ([]model.ResolvedQuote, error) {
	var (
		quotes   []model.ResolvedQuote
		firstErr error
		history  *historyWindow
	)
	for _, ref := range refs {
		var (
			q   *model.ResolvedQuote
			err error
		)
		switch ref.Kind {
		case model.ReferenceTextFragment, model.ReferenceMessageID:
			if history == nil {
				history = &historyWindow{resolver: r, channelID: msg.ChannelID}
			}
			q, err = r.search(ctx, history, msg, ref)
		case model.ReferenceMessageURL:
			q, err = r.fetch(ctx, msg, ref)
		default:
			err = fail(ResolutionMiss, "resolve", errors.New("unknown reference kind"))
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		quotes = append(quotes, *q)
	}
	if len(quotes) == 0 {
		if firstErr == nil {
			firstErr = fail(ResolutionMiss, "resolve", nil)
		}
		return nil, firstErr
	}
	return quotes, nil
}

func (r *Resolver) Resolve(ctx context.Context, msg model.IncomingMessage, ref model.Reference) (*model.ResolvedQuote, error) {
	quotes, err := r.ResolveAll(ctx, msg, []model.Reference{ref})
	if err != nil {
		return nil, err
	}
	return &quotes[0], nil
}

// historyWindow lists the channel history at most once per resolution.
type historyWindow struct {
	resolver  *Resolver
	channelID string
	messages  []model.Message
	loaded    bool
}

func (h *historyWindow) load(ctx context.Context) ([]model.Message, error) {
	if h.loaded {
		return h.messages, nil
	}
	messages, err := h.resolver.transport.ListRecentMessages(ctx, h.channelID, h.resolver.limit)
	if err != nil {
		return nil, err
	}
	if len(messages) > h.resolver.limit {
		messages = messages[:h.resolver.limit]
	}
	h.messages, h.loaded = messages, true
	return messages, nil
}

func (r *Resolver) search(ctx context.Context, history *historyWindow, msg model.IncomingMessage, ref model.Reference) (*model.ResolvedQuote, error) {
	messages, err := history.load(ctx)
	if err != nil {
		return nil, fail(TransportFailure, "list history", err)
	}
	for _, m := range messages {
		if m.ID == msg.ID {
			continue
		}
		if (ref.Kind == model.ReferenceMessageID && m.ID == ref.MessageID) ||
			(ref.Kind == model.ReferenceTextFragment && strings.Contains(m.Content, ref.Text)) {
			if len(m.GuildID) == 0 {
				m.GuildID = msg.GuildID
			}
			r.fillNickname(ctx, &m)
			q := toResolved(m, "")
			return &q, nil
		}
	}
	return nil, fail(ResolutionMiss, "search history", nil)
}

func (r *Resolver) fetch(ctx context.Context, msg model.IncomingMessage, ref model.Reference) (*model.ResolvedQuote, error) {
	if len(msg.GuildID) == 0 || ref.GuildID != msg.GuildID {
		return nil, fail(GuildMismatch, "fetch permalink", nil)
	}
	if ref.MessageID == msg.ID {
		return nil, fail(ResolutionMiss, "fetch permalink", nil)
	}
	channel, err := r.transport.FetchChannel(ctx, ref.ChannelID)
	if err != nil {
		return nil, lookupFailure("fetch channel", err)
	}
	if !channel.IsText() {
		return nil, fail(ChannelTypeMismatch, "fetch channel", nil)
	}
	m, err := r.transport.FetchMessage(ctx, channel.ID, ref.MessageID)
	if err != nil {
		return nil, lookupFailure("fetch message", err)
	}
	if len(m.GuildID) == 0 {
		m.GuildID = ref.GuildID
	}
	r.fillNickname(ctx, m)
	q := toResolved(*m, channel.Label())
	return &q, nil
}

// fillNickname looks up the guild nickname of the quoted author. History
// records come without one and only the matched message needs it; a failed
// lookup leaves the account tag in place.
func (r *Resolver) fillNickname(ctx context.Context, m *model.Message) {
	if len(m.Author.DisplayName) != 0 || len(m.Author.ID) == 0 || len(m.GuildID) == 0 {
		return
	}
	if nick, err := r.transport.MemberName(ctx, m.GuildID, m.Author.ID); err == nil {
		m.Author.DisplayName = nick
	}
}

func lookupFailure(op string, err error) *Failure {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrPermissionDenied) {
		return fail(ResolutionMiss, op, err)
	}
	return fail(TransportFailure, op, err)
}

func toResolved(m model.Message, channelLabel string) model.ResolvedQuote {
	if len(channelLabel) == 0 {
		channelLabel = model.Channel{ID: m.ChannelID, Name: m.ChannelName}.Label()
	}
	q := model.ResolvedQuote{
		SourceMessageID:   m.ID,
		AuthorDisplayName: m.Author.Name(),
		AuthorAvatarURL:   m.Author.AvatarURL,
		ChannelLabel:      channelLabel,
		Content:           m.Content,
		CreatedAt:         m.CreatedAt,
		Permalink:         m.Permalink(),
	}
	if len(m.AttachmentURLs) != 0 {
		q.AttachmentURL = m.AttachmentURLs[0]
	}
	return q
}
