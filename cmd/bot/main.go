// Package main is the bot entrypoint. It loads configuration, wires
// the application together and runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"scorebot.dev/plusplus-bot/internal/app"
	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== bot starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// Log level from config overrides the default
	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The console adapter reads messages from stdin. Platform-specific
	// adapters (Slack, Telegram, etc.) implement chat.Adapter and are
	// swapped in here.
	adapter := chat.NewConsoleAdapter(chat.NameIdentity("console"), cfg.AnnounceRoom)
	notifier := chat.LogNotifier{}

	application, err := app.New(ctx, cfg, adapter, notifier)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}
	defer application.DB.Close()

	application.Scheduler.Start(ctx)
	defer application.Scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := application.Bot.Start(ctx); err != nil {
			log.WithError(err).Error("bot stopped with error")
		}
	}()

	log.Info("=== bot ready ===")

	sig := <-quit
	log.Infof("received signal %s, shutting down...", sig)

	cancel()

	log.Info("=== bot stopped ===")
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
