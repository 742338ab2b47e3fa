package database

import (
	"context"
	"fmt"
	"time"

	"kart-commerce/internal/config"
	"kart-commerce/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolConfig converts the environment configuration into pool settings.
func PoolConfig(cfg config.DatabaseConfig) *repository.PoolSettings {
	return &repository.PoolSettings{
		MaxConns:        int32(cfg.MaxConnections),
		MinConns:        int32(cfg.MinConnections),
		MaxConnLifetime: time.Duration(cfg.MaxConnLifetime) * time.Second,
		MaxConnIdleTime: 30 * time.Minute,
		LockTimeout:     time.Duration(cfg.LockTimeout) * time.Millisecond,
		ApplicationName: "kart-commerce",
	}
}

// NewPool creates a PostgreSQL connection pool and applies the schema.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Int("lock_timeout_ms", cfg.LockTimeout).
		Msg("creating database connection pool")

	pool, err := repository.NewPool(ctx, cfg.ConnectionString(), PoolConfig(cfg))
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}
