package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reminder_notification_bot/internal/app"
	"reminder_notification_bot/internal/infra/bridge"
	"reminder_notification_bot/internal/infra/config"
	idb "reminder_notification_bot/internal/infra/database"
	"reminder_notification_bot/internal/infra/logger"
	"reminder_notification_bot/internal/infra/scheduler"
	"reminder_notification_bot/internal/infra/supervisor"
	itelegram "reminder_notification_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Reminder Notification Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithField("environment", cfg.Environment).Info("Configuration loaded")

	// Liveness marker for the watchdog. Removed on any exit path.
	if err := supervisor.WriteMarker(cfg.MarkerFile); err != nil {
		mainLogger.WithError(err).Fatal("Could not write liveness marker file")
	}
	defer supervisor.RemoveMarker(cfg.MarkerFile)

	// Database, with bounded startup retries.
	db, err := idb.ConnectWithRetry(cfg.DatabaseURL, cfg.StoreConnRetries, cfg.StoreConnDelay)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	if err := idb.RunMigrations(db); err != nil {
		mainLogger.WithError(err).Fatal("Could not run database migrations")
	}

	loc := cfg.Location()
	reminderRepo := idb.NewPostgresReminderRepository(db, cfg.TablePrefix, loc)
	mainLogger.Info("Reminder repository initialized")

	senderBridge := bridge.New()
	dispatchService := app.NewDispatchService(reminderRepo, logger.Component("dispatch"), cfg.DispatchTimeout)
	timezoneService := app.NewTimezoneService(reminderRepo, loc, logger.Component("normalizer"))

	// Telegram bot. The scheduler does not depend on this being ready: the
	// bridge hands it the sender once the bot has connected.
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telebot handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	itelegram.RegisterReminderHandlers(ctx, bot, reminderRepo, loc, logger.Component("handlers"))
	mainLogger.Info("Reminder command handlers registered")

	if !senderBridge.Set(itelegram.NewTelebotAdapter(bot)) {
		mainLogger.Fatal("Could not publish sender to bridge")
	}

	notifScheduler := scheduler.NewScheduler(senderBridge, dispatchService, logger.Component("scheduler"), scheduler.Options{
		BridgeAttempts: cfg.BridgeAttempts,
		BridgeInterval: cfg.BridgeInterval,
		FaultCooldown:  cfg.FaultCooldown,
	})

	maintenance := scheduler.NewMaintenanceScheduler(timezoneService, loc, logger.Component("maintenance"), cfg.CronSpecNormalize)
	if err := maintenance.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start maintenance scheduler")
	}

	schedulerDone := make(chan error, 1)
	go func() { schedulerDone <- notifScheduler.Run(ctx) }()
	go bot.Start()

	mainLogger.Info("Application setup complete. Bot and Scheduler are running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		mainLogger.Info("Shutting down application...")
	case err := <-schedulerDone:
		if err != nil {
			mainLogger.WithError(err).Error("Scheduler terminated; shutting down")
		}
	}

	cancel()
	maintenance.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully")
}
