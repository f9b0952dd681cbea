// Package db provides database connection infrastructure.
// This is part of the platform layer and contains no business logic.
package db

import (
	"context"
	"time"

	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute
)

// PoolConfig parses the database URL and applies the configured pool bounds.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = cfg.GetDatabaseMaxConns()
	poolConfig.MinConns = cfg.GetDatabaseMinConns()
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	return poolConfig, nil
}

// NewPool opens the pool and pings it once. Failures are logged as
// database errors before they are returned.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		log.DatabaseError("parse_config", err)
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.DatabaseError("open_pool", err)
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.DatabaseError("ping", err)
		return nil, err
	}

	log.Info("database pool ready",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
		"maxConns", poolConfig.MaxConns,
		"minConns", poolConfig.MinConns,
	)
	return pool, nil
}
