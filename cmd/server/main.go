package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pairstats/analytics-backend/internal/api"
	"github.com/pairstats/analytics-backend/internal/config"
	"github.com/pairstats/analytics-backend/internal/db"
	"github.com/pairstats/analytics-backend/internal/notifications"
	"github.com/pairstats/analytics-backend/internal/repository"
	"github.com/pairstats/analytics-backend/internal/scheduler"
	"github.com/pairstats/analytics-backend/internal/service"
	"github.com/pairstats/analytics-backend/internal/simulate"
	"github.com/pairstats/analytics-backend/internal/snapshot"
)

const banner = `
╔══════════════════════════════════════╗
║   PairStats Analytics Service v1.0   ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	zlog, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer zlog.Sync()
	log := zlog.Sugar()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	// Snapshot store
	rdb := snapshot.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()
	store := snapshot.New(rdb)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := store.Ping(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[KV] Snapshot store unreachable: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[KV] Snapshot store connected at %s\n", cfg.RedisAddr)
	}

	// Account registry cache
	cache := service.NewAccountCache(cfg.AccountsPath, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	reg, err := cache.Registry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[CONFIG] Account registry error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[CONFIG] %d accounts registered\n", len(reg.Accounts))

	// Core service
	svc := service.New(
		repository.NewFillRepo(pool),
		repository.NewBalanceRepo(pool),
		store,
		cache,
		log,
	)

	simDefaults := simulate.DefaultConfig()
	simDefaults.Paths = cfg.SimPaths
	simDefaults.Persistence = cfg.SimPersistence
	simDefaults.Horizon = cfg.SimHorizonDays
	simDefaults.Workers = cfg.SimWorkers

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(svc, simDefaults, pool, store, cfg.HTTPPort, cfg.APIKey, cfg.CORSAllowOrigin, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Drawdown monitor
	var monitor *scheduler.Monitor
	if cfg.MonitorEnabled {
		monitored := reg.Monitored()
		names := make([]string, len(monitored))
		for i, a := range monitored {
			names[i] = a.Name
		}
		if len(names) == 0 {
			fmt.Println("[MONITOR] Skipped - no accounts flagged as monitored")
		} else {
			notify := notifications.NewSender(cfg.WebhookURL, cfg.ServiceName)
			monitor = scheduler.NewMonitor(svc, notify, scheduler.MonitorConfig{
				Interval:     time.Duration(cfg.MonitorIntervalMinutes) * time.Minute,
				ThresholdPct: cfg.AlertDrawdownPercent,
				RearmPct:     cfg.AlertRearmPercent,
				Accounts:     names,
				DayStartHour: cfg.DayStartHour,
				TZOffset:     cfg.TZOffsetHours,
			}, log)
			monitor.Start()
		}
	} else {
		fmt.Println("[MONITOR] Disabled")
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if monitor != nil {
		monitor.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
