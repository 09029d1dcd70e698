// Package quotetest provides an in-memory chat transport for tests.
package quotetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quote/model"
)

type Published struct {
	Handle      model.Handle
	Publication model.Publication
}

// Transport keeps channels, messages and webhooks in memory and records
// every mutating call.
type Transport struct {
	SelfID string

	// Injected failures.
	DeleteErr  error
	PublishErr error
	HistoryErr error
	ListErr    error
	CreateErr  error
	// CreateDelay slows down webhook creation to widen race windows.
	CreateDelay time.Duration

	mu        sync.Mutex
	channels  map[string]model.Channel
	messages  map[string][]model.Message // most recent first
	handles   map[string][]model.Handle
	nicks     map[string]string
	lookups   int
	deleted   []string
	published []Published
	lists     int
	creates   int
	nextID    int
}

func New(selfID string) *Transport {
	return &Transport{
		SelfID:   selfID,
		channels: make(map[string]model.Channel),
		messages: make(map[string][]model.Message),
		handles:  make(map[string][]model.Handle),
		nicks:    make(map[string]string),
	}
}

func (t *Transport) AddChannel(ch model.Channel) {
	t.mu.Lock()
	t.channels[ch.ID] = ch
	t.mu.Unlock()
}

// Post appends a message to its channel history as the newest entry.
func (t *Transport) Post(m model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.channels[m.ChannelID]; ok {
		if len(m.ChannelName) == 0 {
			m.ChannelName = ch.Name
		}
		if len(m.GuildID) == 0 {
			m.GuildID = ch.GuildID
		}
	}
	t.messages[m.ChannelID] = append([]model.Message{m}, t.messages[m.ChannelID]...)
}

func (t *Transport) AddHandle(h model.Handle) {
	t.mu.Lock()
	t.handles[h.ChannelID] = append(t.handles[h.ChannelID], h)
	t.mu.Unlock()
}

func (t *Transport) SetNick(guildID, userID, nick string) {
	t.mu.Lock()
	t.nicks[guildID+"/"+userID] = nick
	t.mu.Unlock()
}

// MemberLookups counts MemberName calls.
func (t *Transport) MemberLookups() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookups
}

func (t *Transport) Deleted() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.deleted...)
}

func (t *Transport) Published() []Published {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Published(nil), t.published...)
}

func (t *Transport) HandleCreates() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.creates
}

func (t *Transport) HandleLists() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lists
}

func (t *Transport) DeleteMessage(_ context.Context, channelID, messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.DeleteErr != nil {
		return t.DeleteErr
	}
	history := t.messages[channelID]
	for i, m := range history {
		if m.ID == messageID {
			t.messages[channelID] = append(history[:i:i], history[i+1:]...)
			break
		}
	}
	t.deleted = append(t.deleted, messageID)
	return nil
}

func (t *Transport) ListRecentMessages(_ context.Context, channelID string, limit int) ([]model.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.HistoryErr != nil {
		return nil, t.HistoryErr
	}
	history := t.messages[channelID]
	if len(history) > limit {
		history = history[:limit]
	}
	return append([]model.Message(nil), history...), nil
}

func (t *Transport) FetchMessage(_ context.Context, channelID, messageID string) (*model.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.messages[channelID] {
		if m.ID == messageID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", messageID, model.ErrNotFound)
}

func (t *Transport) FetchChannel(_ context.Context, channelID string) (*model.Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.channels[channelID]; ok {
		return &ch, nil
	}
	return nil, fmt.Errorf("channel %s: %w", channelID, model.ErrNotFound)
}

func (t *Transport) MemberName(_ context.Context, guildID, userID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lookups++
	nick, ok := t.nicks[guildID+"/"+userID]
	if !ok {
		return "", fmt.Errorf("member %s: %w", userID, model.ErrNotFound)
	}
	return nick, nil
}

func (t *Transport) ListHandles(ctx context.Context, channelID string) ([]model.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lists++
	if t.ListErr != nil {
		return nil, t.ListErr
	}
	return append([]model.Handle(nil), t.handles[channelID]...), nil
}

func (t *Transport) CreateHandle(ctx context.Context, channelID, name string) (*model.Handle, error) {
	if t.CreateDelay > 0 {
		time.Sleep(t.CreateDelay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.creates++
	if t.CreateErr != nil {
		return nil, t.CreateErr
	}
	t.nextID++
	h := model.Handle{
		ID:        fmt.Sprintf("webhook-%d", t.nextID),
		Token:     fmt.Sprintf("token-%d", t.nextID),
		ChannelID: channelID,
		OwnerID:   t.SelfID,
		Name:      name,
	}
	t.handles[channelID] = append(t.handles[channelID], h)
	return &h, nil
}

func (t *Transport) Publish(ctx context.Context, handle model.Handle, pub model.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.PublishErr != nil {
		return t.PublishErr
	}
	t.published = append(t.published, Published{Handle: handle, Publication: pub})
	return nil
}
