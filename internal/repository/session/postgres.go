package session

import (
	"context"
	"errors"

	"woocart-bridge/internal/db"
	"woocart-bridge/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool      *pgxpool.Pool
	getQuery  string
	saveQuery string
	insQuery  string
}

func NewPostgres(pool *pgxpool.Pool, tables db.Tables) Repository {
	return &postgresRepo{
		pool: pool,
		getQuery: `
SELECT session_key, session_value, session_expiry
FROM ` + tables.Sessions + `
WHERE session_key = $1
`,
		saveQuery: `
UPDATE ` + tables.Sessions + `
SET session_value = $2
WHERE session_key = $1
`,
		insQuery: `
INSERT INTO ` + tables.Sessions + ` (session_key, session_value, session_expiry)
VALUES ($1, $2, $3)
ON CONFLICT (session_key) DO UPDATE SET
    session_value = EXCLUDED.session_value,
    session_expiry = EXCLUDED.session_expiry
`,
	}
}

func (r *postgresRepo) Get(ctx context.Context, key string) (*Row, error) {
	var row Row
	err := r.pool.QueryRow(ctx, r.getQuery, key).Scan(&row.Key, &row.Value, &row.Expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Unavailable("session repo: get", err)
	}
	return &row, nil
}

// UpdateValue rewrites the stored value of an existing session. It never
// creates rows; sessions are owned by the storefront.
func (r *postgresRepo) UpdateValue(ctx context.Context, key, value string) error {
	cmd, err := r.pool.Exec(ctx, r.saveQuery, key, value)
	if err != nil {
		return domain.Unavailable("session repo: update", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert writes a full row, replacing value and expiry of an existing one.
func (r *postgresRepo) Upsert(ctx context.Context, row Row) error {
	if _, err := r.pool.Exec(ctx, r.insQuery, row.Key, row.Value, row.Expiry); err != nil {
		return domain.Unavailable("session repo: upsert", err)
	}
	return nil
}
