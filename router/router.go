// Package router receives new chat messages and runs each one through the
// quoting flow on its own goroutine.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"quote/model"
	"quote/pattern"
	"quote/quote"
	"quote/utils/queue"
)

const recentMessages = 500

// ActivityNotifier is told about every successful quote.
type ActivityNotifier interface {
	NotifyQuoteCompleted(ctx context.Context, userID, userTag string)
}

type Stage int

const (
	StageReceived Stage = iota
	StageFiltered
	StageClassified
	StageResolving
	StageResolved
	StageUnresolved
	StageRendering
	StagePublishing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "Received"
	case StageFiltered:
		return "Filtered"
	case StageClassified:
		return "Classified"
	case StageResolving:
		return "Resolving"
	case StageResolved:
		return "Resolved"
	case StageUnresolved:
		return "Unresolved"
	case StageRendering:
		return "Rendering"
	case StagePublishing:
		return "Publishing"
	case StageDone:
		return "Done"
	}
	return "Unknown"
}

// Outcome describes how far a message got. Trail lists the stages passed
// through; every chain ends in StageDone.
type Outcome struct {
	Trail     []Stage
	Published bool
	Err       error
}

// Last returns the final stage before Done.
func (o Outcome) Last() Stage {
	for i := len(o.Trail) - 1; i >= 0; i-- {
		if o.Trail[i] != StageDone {
			return o.Trail[i]
		}
	}
	return StageReceived
}

type Router struct {
	Receive chan model.IncomingMessage

	resolver  *quote.Resolver
	renderer  *quote.Renderer
	publisher *quote.Publisher
	activity  ActivityNotifier

	recent *queue.List[string]
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func New(resolver *quote.Resolver, renderer *quote.Renderer, publisher *quote.Publisher, activity ActivityNotifier, log zerolog.Logger) *Router {
	return &Router{
		Receive:   make(chan model.IncomingMessage, 100),
		resolver:  resolver,
		renderer:  renderer,
		publisher: publisher,
		activity:  activity,
		recent:    queue.NewList[string](recentMessages),
		log:       log.With().Str("component", "router").Logger(),
	}
}

// Loop dispatches received messages until ctx is done, then waits for the
// chains still in flight.
func (r *Router) Loop(ctx context.Context) {
	defer r.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.Receive:
			r.Go(ctx, msg)
		}
	}
}

// Go runs the chain for msg in the background. A started chain runs to the
// end even when ctx is cancelled: stopping between the delete and the
// publish would lose the message.
func (r *Router) Go(ctx context.Context, msg model.IncomingMessage) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Dispatch(ctx, msg)
	}()
}

// Wait blocks until every chain started so far has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Dispatch runs the whole chain for one message synchronously.
func (r *Router) Dispatch(ctx context.Context, msg model.IncomingMessage) (out Outcome) {
	log := r.log.With().
		Str("message_id", msg.ID).
		Str("channel_id", msg.ChannelID).
		Str("guild_id", msg.GuildID).
		Logger()
	step := func(s Stage) { out.Trail = append(out.Trail, s) }
	defer func() {
		if v := recover(); v != nil {
			out.Err = fmt.Errorf("panic: %v", v)
			log.Error().Str("stage", out.Last().String()).Interface("panic", v).Msg("Quote chain panicked")
		}
		step(StageDone)
	}()

	step(StageReceived)
	if msg.AuthorIsBot {
		return
	}
	if !r.recent.PushIfAbsent(msg.ID, func(v string) bool { return v == msg.ID }) {
		log.Debug().Msg("Dropping duplicate delivery")
		return
	}

	step(StageFiltered)
	res := pattern.Extract(msg.Content)
	if !res.Found() {
		return
	}
	step(StageClassified)
	log.Debug().Str("kind", res.Kind.String()).Int("references", len(res.References)).Msg("Message references another")

	step(StageResolving)
	quotes, err := r.resolver.ResolveAll(ctx, msg, res.References)
	if err != nil {
		step(StageUnresolved)
		out.Err = err
		r.report(log, err)
		return
	}
	step(StageResolved)

	step(StageRendering)
	cards := r.renderer.RenderAll(quotes)

	step(StagePublishing)
	if err = r.publisher.Mimic(ctx, msg, res.Residual, cards); err != nil {
		out.Err = err
		r.report(log, err)
		return
	}
	out.Published = true
	log.Info().Int("cards", len(cards)).Msg("Quoted message")

	if r.activity != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.activity.NotifyQuoteCompleted(context.WithoutCancel(ctx), msg.AuthorID, msg.AuthorTag)
		}()
	}
	return
}

func (r *Router) report(log zerolog.Logger, err error) {
	kind := quote.KindOf(err)
	if kind.Silent() {
		log.Debug().Err(err).Str("kind", kind.String()).Msg("Quote aborted")
		return
	}
	var f *quote.Failure
	lost := errors.As(err, &f) && f.ContentLost
	log.Error().Err(err).Str("kind", kind.String()).Bool("content_lost", lost).Msg("Quote failed")
}
