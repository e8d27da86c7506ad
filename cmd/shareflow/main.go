package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ShareFlow/internal/api"
	"ShareFlow/internal/cache"
	"ShareFlow/internal/config"
	"ShareFlow/internal/logging"
	"ShareFlow/internal/notifier"
	"ShareFlow/internal/project"
	"ShareFlow/internal/scheduler"
	"ShareFlow/internal/store"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shareflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Infow("ShareFlow starting", "version", version, "db", cfg.Database.Driver)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	// Dashboard cache is optional
	var dashCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnw("redis unavailable, dashboard cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			dashCache = cache.NewRedisCache(client, cfg.Redis.TTL)
			log.Infow("dashboard cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	svc := project.NewService(st, dashCache, project.LogProtocol{Log: log}, log, project.Options{
		RoyaltyBps:    cfg.Stream.RoyaltyBps,
		TokenDecimals: cfg.Stream.TokenDecimals,
	})

	// Telegram is optional
	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	}

	ms, err := scheduler.LoadMilestones(cfg.Schedule.StateFile)
	if err != nil {
		return fmt.Errorf("load milestones: %w", err)
	}
	sched := scheduler.NewScheduler(ctx, svc, n, ms, log)
	if err := sched.RegisterAll(cfg.Schedule.FundingCron, cfg.Schedule.DriftCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running funding sweep now")
		go sched.RunFundingSweep()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(svc, st, log, api.Options{
			Version:     version,
			CORSOrigins: cfg.Server.CORSOrigins,
			RatePerSec:  cfg.Server.RatePerSec,
			Burst:       cfg.Server.Burst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http shutdown failed", "error", err)
	}
	log.Info("ShareFlow stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		st, err := store.NewPostgresStore(ctx, cfg.Database.PostgresDSN, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return st, nil
	case "memory":
		log.Warn("using in-memory store, projects are lost on exit")
		return store.NewMemoryStore(), nil
	default:
		if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return st, nil
	}
}
