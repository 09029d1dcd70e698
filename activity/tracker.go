// Package activity counts successful quotes per user and asks a user for
// feedback once, when their count reaches a threshold.
package activity

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const (
	DefaultThreshold       = 5
	DefaultFeedbackMessage = "Thanks for using Quote! If you have a minute, we would love to hear your feedback: https://github.com/neet/quote/issues"
)

// Prompter delivers a direct message to a user.
type Prompter interface {
	SendDirect(ctx context.Context, userID, text string) error
}

type Tracker struct {
	repo      Repository
	prompter  Prompter
	threshold int
	message   string
	log       zerolog.Logger

	lock sync.Mutex
}

func NewTracker(repo Repository, prompter Prompter, threshold int, message string, log zerolog.Logger) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(message) == 0 {
		message = DefaultFeedbackMessage
	}
	return &Tracker{
		repo:      repo,
		prompter:  prompter,
		threshold: threshold,
		message:   message,
		log:       log.With().Str("component", "activity").Logger(),
	}
}

// NotifyQuoteCompleted records one successful quote by the user. Errors are
// logged and never surfaced to the caller.
func (t *Tracker) NotifyQuoteCompleted(ctx context.Context, userID, userTag string) {
	count, ok := t.increment(ctx, userID, userTag)
	if !ok || count != t.threshold {
		return
	}
	if err := t.prompter.SendDirect(ctx, userID, t.message); err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send feedback prompt")
		return
	}
	t.log.Info().Str("user_id", userID).Str("tag", userTag).Msg("Sent feedback prompt")
}

func (t *Tracker) increment(ctx context.Context, userID, userTag string) (int, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	user, err := t.repo.Find(ctx, userID)
	if err != nil {
		t.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load quote count")
		return 0, false
	}
	if user == nil {
		user = &User{ID: userID}
	}
	user.Tag = userTag
	user.QuoteCount++
	if err = t.repo.Save(ctx, *user); err != nil {
		t.log.Error().Err(err).Str("user_id", userID).Msg("Failed to save quote count")
		return 0, false
	}
	return user.QuoteCount, true
}
