package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/adaptive"
	"smc-signal-engine/internal/api"
	"smc-signal-engine/internal/database"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/policy"
	tradesignal "smc-signal-engine/internal/signal"
	"smc-signal-engine/internal/store"
)

// snapshotKey names the single persisted engine state. One process owns one
// Q-table and one reward memory.
const snapshotKey = "default"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
		Output: cfg.LoggingConfig.Output,
	})
	if err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Info().Msg("structured logging initialized")

	// Redis snapshot store, memory-only when disabled
	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
	}
	snapshots := store.NewSnapshotStore(redisClient, logger)

	// PostgreSQL outcome history, optional. The store stays a nil interface
	// when disabled so the handlers skip persistence entirely.
	var outcomeStore api.OutcomeStore
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		outcomeStore = db
	}

	// Learning state, restored from the last snapshot
	reward := adaptive.NewRewardModel()
	pol := policy.NewPolicy(policy.Config{
		Alpha: cfg.EngineConfig.Alpha,
		Gamma: cfg.EngineConfig.Gamma,
	}, logger)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 5*time.Second)
	if table, err := snapshots.LoadQTable(loadCtx, snapshotKey); err != nil {
		logger.Warn().Err(err).Msg("failed to restore policy snapshot")
	} else if len(table) > 0 {
		pol.Restore(table)
		logger.Info().Int("states", len(table)).Msg("policy restored from snapshot")
	}
	if memory, err := snapshots.LoadRewardMemory(loadCtx, snapshotKey); err != nil {
		logger.Warn().Err(err).Msg("failed to restore reward snapshot")
	} else if len(memory) > 0 {
		reward.Restore(memory)
		logger.Info().Int("symbols", len(memory)).Msg("reward memory restored from snapshot")
	}
	cancelLoad()

	eng := engine.New(engine.Config{
		Signal: tradesignal.Config{
			StopLossPercent: cfg.EngineConfig.StopLossPercent,
			TargetPercents:  cfg.EngineConfig.TargetPercents,
		},
		Policy: policy.Config{Alpha: cfg.EngineConfig.Alpha, Gamma: cfg.EngineConfig.Gamma},
	}, reward, pol, logger)

	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ProductionMode: true,
	}, eng, outcomeStore, snapshots, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start web server")
		}
	}()
	logger.Info().
		Str("host", cfg.ServerConfig.Host).
		Int("port", cfg.ServerConfig.Port).
		Msg("signal engine started")

	// Periodic snapshot flush
	flushDone := make(chan struct{})
	flushTicker := time.NewTicker(time.Duration(cfg.EngineConfig.SnapshotSeconds) * time.Second)
	go func() {
		defer flushTicker.Stop()
		for {
			select {
			case <-flushTicker.C:
				flushSnapshots(snapshots, eng, logger)
			case <-flushDone:
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	close(flushDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down web server")
	}

	// Final flush so learned state survives the restart
	flushSnapshots(snapshots, eng, logger)

	logger.Info().Msg("shutdown complete")
}

func flushSnapshots(snapshots *store.SnapshotStore, eng *engine.Engine, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := snapshots.SaveQTable(ctx, snapshotKey, eng.Policy().Snapshot()); err != nil {
		logger.Error().Err(err).Msg("failed to save policy snapshot")
	}
	if err := snapshots.SaveRewardMemory(ctx, snapshotKey, eng.Reward().Snapshot()); err != nil {
		logger.Error().Err(err).Msg("failed to save reward snapshot")
	}
}
