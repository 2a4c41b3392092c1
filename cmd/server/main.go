package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/config"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/database"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/logging"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/realtime"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/redisbridge"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/registry"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *redisbridge.Client {
	client, err := redisbridge.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, dispatcher *realtime.Dispatcher, reg *registry.Registry, cancelBridge context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// No new mutations arrive once the HTTP surface is down; drain the
		// dispatcher before tearing down the client connections it feeds.
		dispatcher.Stop()
		reg.Stop()
		cancelBridge()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	repo := database.NewEmployeeRepo(pool)

	reg := registry.New(clock, cfg.MaxClientsPerOrg)

	// Redis is optional: a single instance works without it, a fleet needs
	// the bridge so updates reach clients connected to other instances.
	bridgeCtx, cancelBridge := context.WithCancel(context.Background())
	defer cancelBridge()

	var (
		bridge      *redisbridge.Bridge
		redisPinger server.Pinger
		publish     realtime.PublishFunc
	)
	if cfg.RedisURL != "" {
		redisClient := setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()

		bridge = redisbridge.New(redisClient, reg)
		redisPinger = redisClient
		publish = bridge.Publish
	}

	resolver := realtime.DefaultResolver(repo)
	assembler := realtime.NewAssembler(repo, clock)
	dispatcher := realtime.NewDispatcher(resolver, assembler, reg, publish, cfg.DispatchWorkers, cfg.DispatchQueueSize)

	bus := realtime.NewCommitBus()
	bus.Subscribe(dispatcher.OnCommit)

	if bridge != nil {
		go bridge.Run(bridgeCtx)
	}

	srv := server.New(cfg, reg, dispatcher, repo, pool, redisPinger, clock)

	done := runGracefulShutdown(srv, dispatcher, reg, cancelBridge)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
