package discord

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"quote/conf"
	"quote/model"
)

const helpText = "**Quote** allows you to quote messages in a better way.\n\n" +
	"> `> <text>`\n" +
	"Quote a message that contains `<text>` from the same channel and replace your message with an embed.\n\n" +
	"> `> <message id>`\n" +
	"Quote a message of the same channel by its id.\n\n" +
	"> `<URL>`\n" +
	"Quote a message by the `<URL>` and replace your message with an embed.\n\n" +
	"> `/help`\n" +
	"Shows usage of Quote."

// App owns the Discord session. It is created once at startup, opened, and
// closed on shutdown; everything that talks to Discord goes through it.
type App struct {
	cli    *discordgo.Session
	status string

	selfID  string
	onReady []func(selfID string)
	readyMu sync.RWMutex

	ChannelInfo map[string]*model.Channel
	lock        sync.RWMutex

	SubscriptMessage []chan<- model.IncomingMessage
	substrateLock    sync.RWMutex

	log zerolog.Logger
}

func NewClient(c conf.Discord, log zerolog.Logger) (*App, error) {
	cli, err := discordgo.New("Bot " + c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	cli.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	app := &App{
		cli:         cli,
		status:      c.Status,
		ChannelInfo: make(map[string]*model.Channel),
		log:         log.With().Str("component", "discord").Logger(),
	}
	app.handler()
	return app, nil
}

// Open connects to the gateway.
func (a *App) Open() error {
	if err := a.cli.Open(); err != nil {
		return errors.Wrap(err, "cannot open the session")
	}
	return nil
}

func (a *App) Close() error {
	return a.cli.Close()
}

func (a *App) SelfID() string {
	a.readyMu.RLock()
	defer a.readyMu.RUnlock()
	return a.selfID
}

// OnReady registers f to be called with the bot's user id whenever the
// gateway session becomes ready.
func (a *App) OnReady(f func(selfID string)) {
	a.readyMu.Lock()
	a.onReady = append(a.onReady, f)
	a.readyMu.Unlock()
}

// RegisterChannel subscribes ch to every new message the bot can see.
func (a *App) RegisterChannel(ch chan<- model.IncomingMessage) {
	a.substrateLock.Lock()
	a.SubscriptMessage = append(a.SubscriptMessage, ch)
	a.substrateLock.Unlock()
}

func (a *App) handler() {
	a.cli.AddHandler(a.handleReady)
	a.cli.AddHandler(func(s *discordgo.Session, c *discordgo.Disconnect) {
		a.log.Warn().Msg("Discord disconnection")
	})
	a.cli.AddHandler(func(s *discordgo.Session, r *discordgo.Resumed) {
		a.log.Info().Msg("Discord connection resumed")
	})
	a.cli.AddHandler(func(s *discordgo.Session, c *discordgo.ChannelUpdate) {
		a.forgetChannel(c.ID)
	})
	a.cli.AddHandler(func(s *discordgo.Session, c *discordgo.ChannelDelete) {
		a.forgetChannel(c.ID)
	})
	a.cli.AddHandler(a.handleMessageCreate)
}

func (a *App) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	a.readyMu.Lock()
	a.selfID = r.User.ID
	callbacks := append([]func(string){}, a.onReady...)
	a.readyMu.Unlock()
	a.log.Info().Str("user", r.User.String()).Msg("Discord bot is up")

	if len(a.status) != 0 {
		if err := s.UpdateListeningStatus(a.status); err != nil {
			a.log.Warn().Err(err).Msg("Failed to set activity status")
		}
	}
	for _, f := range callbacks {
		f(r.User.ID)
	}
}

func (a *App) handleMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	// 过滤自己
	if msg.Author == nil || msg.Author.ID == a.SelfID() {
		return
	}
	if isHelpCommand(msg.Content) && !msg.Author.Bot {
		if _, err := s.ChannelMessageSend(msg.ChannelID, helpText); err != nil {
			a.log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("Failed to send help")
		}
		return
	}
	a.log.Debug().Str("message_id", msg.ID).Str("channel_id", msg.ChannelID).Msg("Receive message")
	in := toIncoming(msg.Message, !msg.Author.Bot && a.deletable(msg.Message))
	go a.ReceiveMessage(in)
}

func (a *App) ReceiveMessage(msg model.IncomingMessage) {
	var chs []chan<- model.IncomingMessage
	a.substrateLock.RLock()
	chs = append(chs, a.SubscriptMessage...)
	a.substrateLock.RUnlock()
	for _, ch := range chs {
		ch <- msg
	}
}

// deletable reports whether the bot may delete m: its own messages always,
// others' only in guild channels where it can manage messages.
func (a *App) deletable(m *discordgo.Message) bool {
	selfID := a.SelfID()
	if m.Author != nil && m.Author.ID == selfID {
		return true
	}
	if len(m.GuildID) == 0 || len(selfID) == 0 {
		return false
	}
	perms, err := a.cli.State.UserChannelPermissions(selfID, m.ChannelID)
	if err != nil {
		if perms, err = a.cli.UserChannelPermissions(selfID, m.ChannelID); err != nil {
			a.log.Debug().Err(err).Str("channel_id", m.ChannelID).Msg("Failed to compute permissions")
			return false
		}
	}
	return canManageMessages(perms)
}

func canManageMessages(perms int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageMessages != 0
}

func isHelpCommand(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "/help")
}

// SendDirect opens a DM channel with the user and sends text.
func (a *App) SendDirect(ctx context.Context, userID, text string) error {
	ch, err := a.cli.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err, "open dm")
	}
	_, err = a.cli.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return mapError(err, "send dm")
}
