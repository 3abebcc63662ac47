package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string // "postgres", "sqlite" or "memory"
	SQLitePath string

	PostgresURL     string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open constructs the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(opts.SQLitePath)
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		if opts.MaxConns > 0 {
			poolCfg.MaxConns = int32(opts.MaxConns)
		}
		if opts.MinConns > 0 {
			poolCfg.MinConns = int32(opts.MinConns)
		}
		if opts.MaxConnLifetime > 0 {
			poolCfg.MaxConnLifetime = opts.MaxConnLifetime
		}
		if opts.MaxConnIdleTime > 0 {
			poolCfg.MaxConnIdleTime = opts.MaxConnIdleTime
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
