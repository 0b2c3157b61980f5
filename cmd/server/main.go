package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/logistics/internal/autostash"
	"github.com/gravitas-games/logistics/internal/config"
	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/ledger"
	"github.com/gravitas-games/logistics/internal/metrics"
	"github.com/gravitas-games/logistics/internal/mission"
	"github.com/gravitas-games/logistics/internal/server"
	"github.com/gravitas-games/logistics/internal/settings"
	"github.com/gravitas-games/logistics/internal/stash"
	"github.com/gravitas-games/logistics/internal/world"
)

func main() {
	log.Println("Starting logistics server...")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded from %s", configPath)
	log.Printf("Server will run on %s:%d", cfg.Server.Host, cfg.Server.Port)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Println("Auto-stash settings fall back to the default until Redis is reachable")
	} else {
		log.Println("Connected to Redis")
	}
	cancel()

	registry := inventory.NewRegistry()
	if cfg.Catalog.ItemsPath != "" {
		if registry, err = inventory.LoadRegistry(cfg.Catalog.ItemsPath); err != nil {
			log.Fatalf("Failed to load item catalog: %v", err)
		}
		log.Printf("Item catalog loaded from %s", cfg.Catalog.ItemsPath)
	}

	store := world.NewStore(registry)
	if cfg.Stash.WorldSeed != "" {
		seed, err := world.LoadSeed(cfg.Stash.WorldSeed)
		if err != nil {
			log.Fatalf("Failed to load world seed: %v", err)
		}
		if err := store.Apply(seed); err != nil {
			log.Fatalf("Failed to apply world seed: %v", err)
		}
		log.Printf("World seeded from %s", cfg.Stash.WorldSeed)
	}

	bus := mission.NewSimpleEventBus()
	missions := mission.NewManager("world", store, bus)

	engine := stash.New(store,
		stash.WithOverflowPredicate(stash.NameContains(cfg.Stash.OverflowMarker)),
		stash.WithRegistry(registry),
	)

	var recorders []autostash.Recorder

	stashMetrics := metrics.New()
	recorders = append(recorders, stashMetrics)

	if cfg.Ledger.SQLitePath != "" {
		db, err := ledger.OpenSQLite(cfg.Ledger.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open stash ledger: %v", err)
		}
		defer db.Close()
		recorders = append(recorders, db)
		log.Printf("Stash ledger at %s", cfg.Ledger.SQLitePath)
	}
	if cfg.Ledger.AuditDir != "" {
		audit := ledger.NewAuditLog(cfg.Ledger.AuditDir)
		defer audit.Close()
		recorders = append(recorders, audit)
		log.Printf("Stash audit log in %s", cfg.Ledger.AuditDir)
	}

	hook := autostash.New(engine, store, settings.NewRedisStore(redisClient, cfg.Redis.SettingsPrefix), recorders...)
	hook.SetTimeout(time.Duration(cfg.Stash.TimeoutSeconds) * time.Second)
	hook.Attach(bus)

	// Create and initialize server
	srv, err := server.New(cfg, server.Deps{
		Redis:    redisClient,
		World:    store,
		Missions: missions,
		Registry: registry,
		Metrics:  stashMetrics.Handler(),
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	hook.AddRecorder(srv.Notifier())

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	bus.Unsubscribe(autostash.SubscriberName)

	log.Println("Server stopped")
}
