package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quote/activity"
	"quote/chat/discord"
	"quote/conf"
	"quote/logging"
	"quote/quote"
	"quote/router"
)

var confPath string

var rootCmd = &cobra.Command{
	Use:           "quote",
	Short:         "Discord bot that turns quoted messages into embeds",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&confPath, "conf", "c", "", "path of the yaml config file, empty to configure from the environment only")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := conf.Load(confPath)
	if err != nil {
		return err
	}
	log := logging.New(c.Log)
	log.Info().Stringer("conf", c).Msg("Config loaded")

	app, err := discord.NewClient(c.Discord, log)
	if err != nil {
		return err
	}

	handles := quote.NewHandleCache(app, "", c.Discord.WebhookName)
	app.OnReady(handles.SetSelfID)

	notifier, err := newNotifier(c.Activity, app, log)
	if err != nil {
		return err
	}

	r := router.New(
		quote.NewResolver(app, c.Quote.HistoryLimit),
		quote.NewRenderer(c.Quote.Footer),
		quote.NewPublisher(app, handles),
		notifier,
		log,
	)
	app.RegisterChannel(r.Receive)

	if err = app.Open(); err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close discord session")
		}
	}()

	go listenExit(cancel, log)
	r.Loop(ctx)
	log.Info().Msg("Bye")
	return nil
}

// newNotifier returns nil when activity tracking is turned off.
func newNotifier(c conf.Activity, app *discord.App, log zerolog.Logger) (router.ActivityNotifier, error) {
	if !c.Enabled {
		return nil, nil
	}
	repo, err := activity.OpenFileRepository(c.StorePath)
	if err != nil {
		return nil, err
	}
	return activity.NewTracker(repo, app, c.Threshold, c.FeedbackMessage, log), nil
}

func listenExit(cancel context.CancelFunc, log zerolog.Logger) {
	sign := make(chan os.Signal, 1)
	signal.Notify(sign, os.Interrupt, syscall.SIGTERM)
	s := <-sign
	log.Info().Str("signal", s.String()).Msg("Receive signal, exit...")
	cancel()
}
