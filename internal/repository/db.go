package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
)

// PoolSettings sizes the connection pool and sets per-session parameters.
type PoolSettings struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// LockTimeout bounds every row lock wait. Zero leaves the server default.
	LockTimeout     time.Duration
	ApplicationName string
}

// DefaultPoolSettings returns the settings used when none are supplied.
func DefaultPoolSettings() *PoolSettings {
	return &PoolSettings{
		MaxConns:        25,
		MinConns:        10,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		LockTimeout:     5 * time.Second,
		ApplicationName: "kart-commerce",
	}
}

// poolConfig applies settings to the parsed connection string. Every
// connection maps NUMERIC to decimal.Decimal.
func poolConfig(connString string, settings *PoolSettings) (*pgxpool.Config, error) {
	if settings == nil {
		settings = DefaultPoolSettings()
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = settings.MaxConns
	cfg.MinConns = settings.MinConns
	cfg.MaxConnLifetime = settings.MaxConnLifetime
	cfg.MaxConnIdleTime = settings.MaxConnIdleTime

	params := cfg.ConnConfig.RuntimeParams
	if settings.LockTimeout > 0 {
		params["lock_timeout"] = strconv.FormatInt(settings.LockTimeout.Milliseconds(), 10)
	}
	if settings.ApplicationName != "" {
		params["application_name"] = settings.ApplicationName
	}

	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return cfg, nil
}

// NewPool opens a pool and pings the server once.
func NewPool(ctx context.Context, connString string, settings *PoolSettings) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(connString, settings)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
