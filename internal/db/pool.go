package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kynex/internal/config"
)

// NewPool creates a tuned connection pool from the database configuration
// and verifies connectivity with a ping before returning it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// PingProbe reports database health by pinging the pool. Satisfies the
// server's HealthProbe interface.
type PingProbe struct {
	pool *pgxpool.Pool
}

// NewPingProbe creates a PingProbe over the given pool.
func NewPingProbe(pool *pgxpool.Pool) *PingProbe {
	return &PingProbe{pool: pool}
}

// Name identifies the probe in health responses.
func (p *PingProbe) Name() string { return "database" }

// Check pings the database.
func (p *PingProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
