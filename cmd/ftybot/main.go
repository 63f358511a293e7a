package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fty-club-bot/internal/api"
	"fty-club-bot/internal/bot"
	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/config"
	"fty-club-bot/internal/moderation"
	"fty-club-bot/internal/modules/antidouble"
	"fty-club-bot/internal/modules/antiraid"
	"fty-club-bot/internal/panel"
	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/tickets"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ring := botlog.New(botlog.DefaultCapacity, logger)
	store := storage.New(cfg.ConfigPath, cfg.TicketsPath, logger)
	panelClient := panel.New(cfg.PanelURL, cfg.PanelAPIKey, logger)
	ring.SetNotifier(func(entry botlog.Entry) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = panelClient.Send(ctx, "log", entry)
	})

	raid := antiraid.New()
	double := antidouble.NewFirstMatch()

	b, err := bot.New(cfg, store, ring, panelClient, raid, double, logger)
	if err != nil {
		return err
	}
	manager := tickets.NewManager(store, b, panelClient, ring)
	b.SetTickets(manager)
	dispatcher := moderation.NewDispatcher(store, b, b, ring)

	server := api.NewServer(cfg, store, ring, panelClient, b, manager, dispatcher, logger)
	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	if err := b.Start(); err != nil {
		return err
	}
	logger.Info("bot started", zap.String("listen", cfg.ListenAddr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errs:
		if err != nil {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := b.Close(); err != nil {
		logger.Warn("gateway close", zap.Error(err))
	}
	return nil
}
