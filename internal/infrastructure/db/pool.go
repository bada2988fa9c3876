package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-envconfig"
)

// PoolConfig tunes the pgx pool backing the holdings store.
type PoolConfig struct {
	MaxConns          int32         `env:"DB_MAX_CONNS, default=10"`
	MinConns          int32         `env:"DB_MIN_CONNS, default=2"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME, default=30m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME, default=5m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTHCHECK_PERIOD, default=30s"`
}

// LoadPoolConfig reads pool settings through lookuper, falling back to the
// tag defaults, and clamps the connection bounds.
func LoadPoolConfig(ctx context.Context, lookuper envconfig.Lookuper) (PoolConfig, error) {
	var cfg PoolConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return PoolConfig{}, fmt.Errorf("pool config: %w", err)
	}
	return cfg.clamp(), nil
}

func (c PoolConfig) clamp() PoolConfig {
	c.MaxConns = max(c.MaxConns, 1)
	c.MinConns = min(max(c.MinConns, 0), c.MaxConns)
	return c
}

func (c PoolConfig) apply(pc *pgxpool.Config) {
	pc.MaxConns = c.MaxConns
	pc.MinConns = c.MinConns
	pc.MaxConnLifetime = c.MaxConnLifetime
	pc.MaxConnIdleTime = c.MaxConnIdleTime
	pc.HealthCheckPeriod = c.HealthCheckPeriod
}

// withSSLMode sets sslmode=require unless the URL already chooses a mode.
// Unparseable URLs are returned untouched and pgx reports the error.
func withSSLMode(databaseURL string) string {
	u, err := url.Parse(strings.TrimSpace(databaseURL))
	if err != nil {
		return databaseURL
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return u.String()
	}
	q.Set("sslmode", "require")
	u.RawQuery = q.Encode()
	return u.String()
}

// NewPool opens a pgx pool for databaseURL and pings it.
func NewPool(ctx context.Context, databaseURL string, cfg PoolConfig) (*pgxpool.Pool, error) {
	pgCfg, err := pgxpool.ParseConfig(withSSLMode(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.apply(pgCfg)

	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
