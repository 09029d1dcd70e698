package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"quote/activity"
	"quote/model"
	"quote/quote"
	"quote/quote/quotetest"
)

const (
	guildID   = "100"
	channelID = "200"
	selfID    = "bot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	transport *quotetest.Transport
	router    *Router
	logs      *syncBuffer
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newFixture(t *testing.T, notifier ActivityNotifier) *fixture {
	t.Helper()
	tr := quotetest.New(selfID)
	tr.AddChannel(model.Channel{ID: channelID, GuildID: guildID, Name: "general", Type: model.ChannelTypeText})
	logs := &syncBuffer{}
	log := zerolog.New(logs).Level(zerolog.DebugLevel)
	r := New(
		quote.NewResolver(tr, 0),
		quote.NewRenderer(""),
		quote.NewPublisher(tr, quote.NewHandleCache(tr, selfID, "")),
		notifier,
		log,
	)
	return &fixture{transport: tr, router: r, logs: logs}
}

// post simulates a user sending a message: it lands in history and is
// returned as the inbound event.
func (f *fixture) post(id, authorID, content string) model.IncomingMessage {
	f.transport.Post(model.Message{
		ID:        id,
		ChannelID: channelID,
		Author:    model.Author{ID: authorID, Tag: authorID + "#0001", DisplayName: "Name of " + authorID},
		Content:   content,
	})
	return model.IncomingMessage{
		ID:                id,
		AuthorID:          authorID,
		AuthorTag:         authorID + "#0001",
		AuthorDisplayName: "Name of " + authorID,
		AuthorAvatarURL:   "https://cdn/" + authorID + ".png",
		ChannelID:         channelID,
		GuildID:           guildID,
		Content:           content,
		Deletable:         true,
	}
}

func TestRouter_QuotesTextFragment(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "I think cats are great animals")
	msg := f.post("m2", "u1", "> cats are great")

	out := f.router.Dispatch(context.Background(), msg)
	require.NoError(t, out.Err)
	assert.True(t, out.Published)
	assert.Equal(t, []Stage{
		StageReceived, StageFiltered, StageClassified, StageResolving,
		StageResolved, StageRendering, StagePublishing, StageDone,
	}, out.Trail)

	assert.Equal(t, []string{"m2"}, f.transport.Deleted())
	published := f.transport.Published()
	require.Len(t, published, 1)
	pub := published[0].Publication
	assert.Equal(t, "Name of u1", pub.SpeakerName)
	assert.Equal(t, "https://cdn/u1.png", pub.SpeakerAvatarURL)
	assert.Empty(t, pub.Content)
	require.Len(t, pub.Cards, 1)
	assert.Equal(t, "I think cats are great animals", pub.Cards[0].Description)
	assert.Equal(t, "Name of u2", pub.Cards[0].AuthorName)
	assert.Equal(t, "#general", pub.Cards[0].Title)
	assert.Equal(t, selfID, published[0].Handle.OwnerID)
}

func TestRouter_GuildMismatch(t *testing.T) {
	f := newFixture(t, nil)
	f.post("11", "u2", "hello")
	msg := f.post("12", "u1", "see https://discord.com/channels/999/200/11")

	out := f.router.Dispatch(context.Background(), msg)
	assert.Equal(t, quote.GuildMismatch, quote.KindOf(out.Err))
	assert.Equal(t, StageUnresolved, out.Last())
	assert.Empty(t, f.transport.Deleted())
	assert.Empty(t, f.transport.Published())
}

func TestRouter_ResolutionMiss(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "hello")
	msg := f.post("m2", "u1", "> zzz-no-such-phrase-zzz")

	out := f.router.Dispatch(context.Background(), msg)
	assert.Equal(t, quote.ResolutionMiss, quote.KindOf(out.Err))
	assert.Empty(t, f.transport.Deleted())
	assert.Empty(t, f.transport.Published())
	assert.Equal(t, 0, f.transport.HandleLists())
}

func TestRouter_FeedbackPromptOnFifthQuote(t *testing.T) {
	prompter := &countingPrompter{}
	repo, err := activity.OpenFileRepository(filepath.Join(t.TempDir(), "persistence.json"))
	require.NoError(t, err)
	tracker := activity.NewTracker(repo, prompter, 5, "", zerolog.Nop())
	f := newFixture(t, tracker)
	f.post("origin", "u2", "quotable words")

	for i := 1; i <= 6; i++ {
		msg := f.post(fmt.Sprintf("q%d", i), "u1", "> quotable")
		out := f.router.Dispatch(context.Background(), msg)
		require.True(t, out.Published, "quote %d", i)
		f.router.Wait()
		want := 0
		if i >= 5 {
			want = 1
		}
		assert.Equal(t, want, prompter.count(), "after quote %d", i)
	}
}

func TestRouter_PublishFailureIsLoggedAndSurvivable(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "something quotable")
	f.transport.PublishErr = errors.New("503 service unavailable")
	msg := f.post("m2", "u1", "> quotable")

	out := f.router.Dispatch(context.Background(), msg)
	var fail *quote.Failure
	require.ErrorAs(t, out.Err, &fail)
	assert.True(t, fail.ContentLost)
	assert.Equal(t, StagePublishing, out.Last())
	assert.Equal(t, []string{"m2"}, f.transport.Deleted())
	assert.Empty(t, f.transport.Published())
	assert.Contains(t, f.logs.String(), "Quote failed")
	assert.Contains(t, f.logs.String(), `"content_lost":true`)

	f.transport.PublishErr = nil
	next := f.router.Dispatch(context.Background(), f.post("m3", "u1", "> quotable"))
	assert.True(t, next.Published)
}

func TestRouter_DropsBotsAndPlainMessages(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "I think cats are great animals")

	bot := f.post("m2", "u3", "> cats")
	bot.AuthorIsBot = true
	out := f.router.Dispatch(context.Background(), bot)
	assert.Equal(t, []Stage{StageReceived, StageDone}, out.Trail)

	out = f.router.Dispatch(context.Background(), f.post("m3", "u1", "just chatting"))
	assert.Equal(t, StageFiltered, out.Last())
	assert.Empty(t, f.transport.Deleted())
}

func TestRouter_DropsDuplicateDelivery(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "I think cats are great animals")
	msg := f.post("m2", "u1", "> cats")

	assert.True(t, f.router.Dispatch(context.Background(), msg).Published)
	out := f.router.Dispatch(context.Background(), msg)
	assert.False(t, out.Published)
	assert.Equal(t, StageReceived, out.Last())
	assert.Len(t, f.transport.Published(), 1)
}

func TestRouter_NotDeletable(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "I think cats are great animals")
	msg := f.post("m2", "u1", "> cats")
	msg.Deletable = false

	out := f.router.Dispatch(context.Background(), msg)
	assert.Equal(t, quote.PermissionDenied, quote.KindOf(out.Err))
	assert.Empty(t, f.transport.Deleted())
	assert.Empty(t, f.transport.Published())
}

func TestRouter_MultiplePermalinksMergeIntoOnePublish(t *testing.T) {
	f := newFixture(t, nil)
	f.post("11", "u2", "first")
	f.post("12", "u3", "second")
	msg := f.post("13", "u1", "both of these\nhttps://discord.com/channels/100/200/11\nhttps://ptb.discord.com/channels/100/200/12/")

	out := f.router.Dispatch(context.Background(), msg)
	require.True(t, out.Published)
	published := f.transport.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "both of these", published[0].Publication.Content)
	require.Len(t, published[0].Publication.Cards, 2)
	assert.Equal(t, "first", published[0].Publication.Cards[0].Description)
	assert.Equal(t, "second", published[0].Publication.Cards[1].Description)
}

func TestRouter_PanicIsContained(t *testing.T) {
	f := newFixture(t, nil)
	r := New(nil, nil, nil, nil, zerolog.Nop())

	out := r.Dispatch(context.Background(), f.post("m2", "u1", "> cats"))
	require.Error(t, out.Err)
	assert.Equal(t, StageDone, out.Trail[len(out.Trail)-1])
}

func TestRouter_LoopConcurrentChannelsShareOneHandle(t *testing.T) {
	f := newFixture(t, nil)
	f.transport.CreateDelay = 10 * time.Millisecond
	f.post("origin", "u2", "shared words")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.router.Loop(ctx)
		close(done)
	}()
	for i := 0; i < 10; i++ {
		f.router.Receive <- f.post(fmt.Sprintf("q%d", i), "u1", "> shared")
	}
	require.Eventually(t, func() bool { return len(f.transport.Published()) == 10 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, f.transport.HandleCreates())
}

// cancelAfterDelete cancels the dispatching context as soon as the
// soliciting message is gone, like a shutdown landing mid-chain.
type cancelAfterDelete struct {
	*quotetest.Transport
	cancel context.CancelFunc
}

func (c cancelAfterDelete) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.Transport.DeleteMessage(ctx, channelID, messageID)
	c.cancel()
	return err
}

func TestRouter_ShutdownDoesNotInterruptChain(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "I think cats are great animals")
	msg := f.post("m2", "u1", "> cats")

	ctx, cancel := context.WithCancel(context.Background())
	tr := cancelAfterDelete{Transport: f.transport, cancel: cancel}
	r := New(
		quote.NewResolver(tr, 0),
		quote.NewRenderer(""),
		quote.NewPublisher(tr, quote.NewHandleCache(tr, selfID, "")),
		nil,
		zerolog.Nop(),
	)
	r.Go(ctx, msg)
	r.Wait()

	require.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, []string{"m2"}, f.transport.Deleted())
	assert.Len(t, f.transport.Published(), 1)
}

func TestRouter_NoWebhookLeavesMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.post("m1", "u2", "I think cats are great animals")
	f.transport.ListErr = errors.New("missing permissions (50013)")
	msg := f.post("m2", "u1", "> cats")

	out := f.router.Dispatch(context.Background(), msg)
	var fail *quote.Failure
	require.ErrorAs(t, out.Err, &fail)
	assert.False(t, fail.ContentLost)
	assert.Equal(t, StagePublishing, out.Last())
	assert.Empty(t, f.transport.Deleted())
	assert.Contains(t, f.logs.String(), `"content_lost":false`)
}

type countingPrompter struct {
	mu sync.Mutex
	n  int
}

func (p *countingPrompter) SendDirect(context.Context, string, string) error {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	return nil
}

func (p *countingPrompter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
