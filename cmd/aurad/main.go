package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"laundry-aura-backend/config"
	"laundry-aura-backend/internal/aiclient"
	"laundry-aura-backend/internal/api"
	"laundry-aura-backend/internal/db"
	"laundry-aura-backend/internal/engine"
	"laundry-aura-backend/internal/gamify"
	"laundry-aura-backend/internal/laundry"
	"laundry-aura-backend/internal/notify"
	"laundry-aura-backend/internal/queue"
	"laundry-aura-backend/internal/schedule"
	"laundry-aura-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "aura-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
		}
		// No config file is fine; everything has a default.
		cfg = &config.Config{}
		cfg.ApplyDefaults()
		logger.Printf("no configuration file at %s, running on defaults", configPath)
	} else {
		logger.Printf("configuration loaded successfully from %s", configPath)
	}

	// Web push is optional; without VAPID keys the pool stays idle and
	// notifications remain in-app only.
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys not configured, web push delivery disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	pool := notify.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
	pool.Start(ctx)
	notifier := notify.NewService(appStore, pool)

	registry := laundry.NewRegistry(cfg.Laundry.Residences, cfg.Laundry.Washers, cfg.Laundry.Dryers)
	ledger := gamify.NewLedger()
	queues := queue.NewManager(notifier)
	scheduler := schedule.NewScheduler(appStore, notifier)
	ai := aiclient.NewClient(cfg.AI)

	// The engine drives machine state, escalation, slot reminders and
	// retention from a single wall-clock ticker.
	eng := engine.New(cfg.Engine, registry, scheduler, notifier, appStore)
	go eng.Run(ctx)
	logger.Printf("engine started, ticking every %s", cfg.Engine.Tick)

	handler := api.NewHandler(registry, ledger, queues, scheduler, notifier, ai, appStore, webpushOptions)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
