package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reminder_notification_bot/internal/infra/config"
	"reminder_notification_bot/internal/infra/logger"
	"reminder_notification_bot/internal/infra/supervisor"
)

const usage = `usage: supervisor [flags] <command>

commands:
  start    start the notifier process and exit
  status   report whether the notifier is currently running
  watch    start the notifier and keep it alive (restart on failure)

flags:
`

func main() {
	flags := flag.NewFlagSet("supervisor", flag.ExitOnError)
	interval := flags.Duration("interval", 0, "liveness check interval for watch (default from config, 5m)")
	console := flags.Bool("console", false, "attach the notifier's output to this console")
	notifier := flags.String("notifier", "", "path to the notifier binary (default from config)")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(2)
	}
	_ = flags.Parse(os.Args[2:])
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	log := logger.Component("supervisor")

	checkInterval := cfg.MonitorInterval
	if *interval > 0 {
		checkInterval = *interval
	}
	notifierCmd := cfg.NotifierCommand
	if *notifier != "" {
		notifierCmd = *notifier
	}

	watchdog := supervisor.NewWatchdog(log, cfg.MarkerFile, notifierCmd, nil, checkInterval)
	watchdog.AttachConsole = *console

	switch command {
	case "start":
		if pid, running := watchdog.IsRunning(); running {
			log.WithField("pid", pid).Info("Notifier already running")
			return
		}
		if _, err := watchdog.Start(); err != nil {
			log.WithError(err).Fatal("Could not start notifier")
		}

	case "status":
		if pid, running := watchdog.IsRunning(); running {
			fmt.Printf("notifier running (pid %d)\n", pid)
		} else {
			fmt.Println("notifier not running")
			os.Exit(1)
		}

	case "watch":
		ctx, cancel := context.WithCancel(context.Background())
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			cancel()
		}()
		log.WithField("interval", checkInterval.String()).Info("Watchdog monitoring notifier")
		if err := watchdog.Watch(ctx); err != nil {
			log.WithError(err).Fatal("Watchdog failed")
		}

	default:
		flags.Usage()
		os.Exit(2)
	}
}
