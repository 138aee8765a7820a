// Package app wires configuration, storage, scheduling and delivery into a
// running medreminder instance.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/api"
	"github.com/gmsas95/medreminder/internal/channels/discord"
	"github.com/gmsas95/medreminder/internal/channels/telegram"
	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/leaflet"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/notify"
	"github.com/gmsas95/medreminder/internal/prefs"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
	"github.com/gmsas95/medreminder/internal/tracker"
)

type App struct {
	Config      *config.Config
	Store       *store.Store
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Hub         *notify.Hub
	Sender      *notify.MultiSender
	Registry    reminder.Registry
	Cron        *notify.CronRegistry
	Scheduler   *reminder.Scheduler
	Tracker     *tracker.Service
	Profiles    *prefs.ProfileStore
	Language    *prefs.LanguageStore
	Leaflets    *leaflet.Service
	TelegramBot *telegram.Bot
	DiscordBot  *discord.Bot
	Version     string
}

// NewLogger builds the development logger unless log.json asks for the
// production encoder.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.JSON {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// New opens storage and builds every service. Scheduled reminders are
// restored but nothing fires until RunServer starts the cron loop.
func New(cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Version: version,
	}

	st, err := store.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	app.Store = st

	if err := app.setupReminders(); err != nil {
		app.Close()
		return nil, err
	}

	app.Tracker = tracker.NewService(st, app.Scheduler, logger)

	if app.Profiles, err = prefs.NewProfileStore(st, logger); err != nil {
		app.Close()
		return nil, err
	}
	if app.Language, err = prefs.NewLanguageStore(st, logger); err != nil {
		app.Close()
		return nil, err
	}

	client := leaflet.NewClient(cfg.Leaflet, logger)
	leaflets, err := leaflet.NewService(client, cfg.Leaflet.CacheSize, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize leaflet service: %w", err)
	}
	app.Leaflets = leaflets.WithMetrics(app.Metrics)
	logger.Info("Leaflet service ready",
		zap.String("model", client.Model()),
		zap.Int("cache_size", cfg.Leaflet.CacheSize))

	app.subscribe()

	return app, nil
}

// subscribe reacts to preference changes. Cached summaries are built for
// the old profile, and connected clients get the new values.
func (app *App) subscribe() {
	app.Profiles.Subscribe(func(p *prefs.Profile) {
		app.Leaflets.Purge()
		if app.Hub != nil {
			app.Hub.Broadcast("profile", "profile", p)
		}
	})
	app.Language.Subscribe(func(lang prefs.Language) {
		if app.Hub != nil {
			app.Hub.Broadcast("language", "language", lang)
		}
	})
}

func (app *App) setupReminders() error {
	cfg := app.Config

	senders := []notify.Sender{}
	if cfg.Channels.Log {
		senders = append(senders, notify.NewLogSender(app.Logger))
	}
	if cfg.Channels.WebSocket {
		app.Hub = notify.NewHub(app.Logger)
		senders = append(senders, app.Hub)
	}

	app.Sender = notify.NewMultiSender(senders...)

	if !cfg.Reminders.Enabled {
		app.Logger.Info("Reminders disabled, notifications will not be scheduled")
		app.Registry = notify.Unsupported{}
	} else {
		loc, err := cfg.Location()
		if err != nil {
			return fmt.Errorf("invalid reminders timezone: %w", err)
		}
		app.Cron = notify.NewCronRegistry(app.Store, app.Sender, loc, app.Logger).WithMetrics(app.Metrics)
		app.Registry = app.Cron

		restored, err := app.Cron.Restore(context.Background())
		if err != nil {
			return fmt.Errorf("failed to restore reminders: %w", err)
		}
		app.Logger.Info("Reminders restored", zap.Int("count", restored))
	}

	app.Scheduler = reminder.NewScheduler(app.Registry, app.Logger).
		WithPreDoseMinutes(cfg.Reminders.PreDoseMinutes).
		WithConcurrency(cfg.Reminders.Concurrency).
		WithMetrics(app.Metrics)

	return nil
}

// startChannels connects the chat bots and adds them to the delivery fan out.
// A channel that fails to connect is logged and skipped.
func (app *App) startChannels() {
	tg := app.Config.Channels.Telegram
	bot, err := telegram.NewBot(telegram.Config{
		Token:          tg.BotToken,
		ChatID:         tg.ChatID,
		Enabled:        tg.Enabled,
		PreDoseMinutes: app.Scheduler.PreDoseMinutes(),
	}, app.Registry, app.Logger)
	switch {
	case err != nil:
		app.Logger.Error("Failed to create Telegram bot", zap.Error(err))
	case bot != nil:
		if err := bot.Start(); err != nil {
			app.Logger.Error("Failed to start Telegram bot", zap.Error(err))
		} else {
			app.TelegramBot = bot
			app.Sender.Add(bot)
			app.Logger.Info("Telegram bot started")
		}
	}

	dc := app.Config.Channels.Discord
	dbot, err := discord.NewBot(discord.Config{
		Token:     dc.Token,
		ChannelID: dc.ChannelID,
		Enabled:   dc.Enabled,
	}, app.Logger)
	switch {
	case err != nil:
		app.Logger.Error("Failed to create Discord bot", zap.Error(err))
	case dbot != nil:
		app.DiscordBot = dbot
		app.Sender.Add(dbot)
		app.Logger.Info("Discord delivery enabled")
	}
}

// APIServer builds the HTTP server over the app's services
func (app *App) APIServer() *api.Server {
	api.Version = app.Version
	return api.New(app.Config, api.Deps{
		Tracker:   app.Tracker,
		Scheduler: app.Scheduler,
		Registry:  app.Registry,
		Profiles:  app.Profiles,
		Language:  app.Language,
		Leaflets:  app.Leaflets,
		Hub:       app.Hub,
		Metrics:   app.Metrics,
	}, app.Logger)
}

func (app *App) RunServer() {
	app.startChannels()

	if app.Cron != nil {
		app.Cron.Start()
		app.Logger.Info("Reminder scheduler started",
			zap.Strings("channels", app.Sender.Names()))
	}

	server := app.APIServer()

	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}

	app.Close()
}

// RescheduleAll re-registers reminders for every stored medicine
func (app *App) RescheduleAll(ctx context.Context) ([]reminder.BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return app.Tracker.RescheduleAll(ctx)
}

// Close stops background work and releases storage
func (app *App) Close() {
	if app.TelegramBot != nil {
		app.TelegramBot.Stop()
		app.TelegramBot = nil
	}
	if app.Cron != nil {
		app.Cron.Stop()
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Error("Failed to close store", zap.Error(err))
		}
		app.Store = nil
	}
}
