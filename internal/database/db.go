package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// NewDB creates a new database connection
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	db := &DB{Pool: pool, logger: logger.With().Str("component", "database").Logger()}
	db.logger.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		// Evaluations: one row per generated signal, written at evaluation
		// time so an outcome can later be matched against what the engine
		// believed.
		`CREATE TABLE IF NOT EXISTS signal_evaluations (
			id UUID PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			signal VARCHAR(4) NOT NULL,
			base_confidence INT NOT NULL,
			confidence INT NOT NULL,
			structure_score INT NOT NULL,
			reward_weight DECIMAL(6, 4) NOT NULL,
			stop_loss DECIMAL(20, 8),
			target_1 DECIMAL(20, 8),
			target_2 DECIMAL(20, 8),
			target_3 DECIMAL(20, 8),
			state_key VARCHAR(30) NOT NULL,
			policy_mode VARCHAR(10) NOT NULL,
			explanation TEXT,
			evaluated_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_evaluations_symbol ON signal_evaluations(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_evaluations_evaluated_at ON signal_evaluations(evaluated_at)`,

		// Outcomes: resolved trades reported back by the caller. They feed
		// both the per-symbol reward weights and batch policy training.
		`CREATE TABLE IF NOT EXISTS signal_outcomes (
			id SERIAL PRIMARY KEY,
			evaluation_id UUID REFERENCES signal_evaluations(id) ON DELETE SET NULL,
			symbol VARCHAR(20) NOT NULL,
			action VARCHAR(4) NOT NULL,
			state_key VARCHAR(30) NOT NULL,
			return_percent DECIMAL(10, 4) NOT NULL,
			win BOOLEAN NOT NULL,
			hit_status VARCHAR(12) NOT NULL DEFAULT 'ACTIVE',
			trained BOOLEAN DEFAULT FALSE,
			reported_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_outcomes_symbol ON signal_outcomes(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_outcomes_trained ON signal_outcomes(trained)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_outcomes_reported_at ON signal_outcomes(reported_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Msg("database migrations completed")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
