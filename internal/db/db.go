package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool and verifies connectivity with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Tables holds the quoted names of the WordPress tables the bridge touches.
// WordPress lets every install pick its own prefix, so names are built once
// from configuration instead of being hard-coded in queries.
type Tables struct {
	Sessions string
	Posts    string
	PostMeta string
	Options  string
	APIKeys  string
}

// NewTables quotes prefix+name for each table.
func NewTables(prefix string) Tables {
	quote := func(name string) string {
		return pgx.Identifier{prefix + name}.Sanitize()
	}
	return Tables{
		Sessions: quote("woocommerce_sessions"),
		Posts:    quote("posts"),
		PostMeta: quote("postmeta"),
		Options:  quote("options"),
		APIKeys:  quote("woocommerce_api_keys"),
	}
}
