// Command cranker runs the honorary quote-fee distribution for every
// configured pool. It loads configuration, makes sure each pool's policy and
// honorary position exist, then cranks once or on a cron schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krazyTry/honorary-quote-fee/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	setupOnly := flag.Bool("setup", false, "initialise policies and honorary positions, then exit")
	once := flag.Bool("once", false, "run one crank pass even when a schedule is configured")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Debug("configuration loaded", slog.Any("config", config.Redacted(cfg)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire cranker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Setup(ctx); err != nil {
		logger.Error("setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *setupOnly {
		return
	}

	if cfg.Cranker.Schedule == "" || *once {
		if _, err := app.service.RunAll(ctx); err != nil {
			logger.Error("crank run failed", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sched := app.Scheduler(ctx)
	if err := sched.Register(cfg.Cranker.Schedule); err != nil {
		logger.Error("invalid schedule", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sched.Start()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), cfg.LockTTL()+30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdown); err != nil {
		logger.Error("scheduler did not stop cleanly", slog.String("error", err.Error()))
	}
	logger.Info("cranker stopped")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
