package option

import (
	"context"
	"errors"

	"woocart-bridge/internal/db"
	"woocart-bridge/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgres(pool *pgxpool.Pool, tables db.Tables) Repository {
	return &postgresRepo{pool: pool, table: tables.Options}
}

func (r *postgresRepo) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT option_value FROM `+r.table+` WHERE option_name = $1`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.Unavailable("option repo: get", err)
	}
	return value, nil
}

func (r *postgresRepo) Set(ctx context.Context, name, value string) error {
	const suffix = `
ON CONFLICT (option_name) DO UPDATE SET option_value = EXCLUDED.option_value
`
	if _, err := r.pool.Exec(ctx, `INSERT INTO `+r.table+` (option_name, option_value) VALUES ($1, $2)`+suffix, name, value); err != nil {
		return domain.Unavailable("option repo: set", err)
	}
	return nil
}
