package credential

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"woocart-bridge/internal/db"
	"woocart-bridge/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	table  string
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, tables db.Tables, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, table: tables.APIKeys, logger: logger}
}

func (r *postgresRepo) GetByConsumerKey(ctx context.Context, hashedKey string) (*domain.APICredential, error) {
	q := `
SELECT key_id, user_id, COALESCE(description, ''), permissions, consumer_key, consumer_secret, truncated_key, last_access
FROM ` + r.table + `
WHERE consumer_key = $1
LIMIT 1
`
	var (
		out        domain.APICredential
		permission string
	)
	err := r.pool.QueryRow(ctx, q, hashedKey).Scan(
		&out.KeyID,
		&out.UserID,
		&out.Description,
		&permission,
		&out.HashedKey,
		&out.Secret,
		&out.TruncatedKey,
		&out.LastAccess,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("credential repo: get error=%v", err)
		return nil, domain.Unavailable("credential repo: get", err)
	}
	out.Permission = domain.Permission(permission)
	return &out, nil
}

func (r *postgresRepo) TouchLastAccess(ctx context.Context, keyID int64, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE `+r.table+` SET last_access = $2 WHERE key_id = $1`, keyID, at)
	if err != nil {
		return domain.Unavailable("credential repo: touch", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Create(ctx context.Context, c domain.APICredential) (*domain.APICredential, error) {
	q := `
INSERT INTO ` + r.table + ` (user_id, description, permissions, consumer_key, consumer_secret, truncated_key)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
RETURNING key_id
`
	out := c
	if err := r.pool.QueryRow(ctx, q, c.UserID, c.Description, string(c.Permission), c.HashedKey, c.Secret, c.TruncatedKey).Scan(&out.KeyID); err != nil {
		r.logger.Printf("credential repo: create user_id=%d error=%v", c.UserID, err)
		return nil, domain.Unavailable("credential repo: create", err)
	}
	r.logger.Printf("credential repo: created key_id=%d user_id=%d permissions=%s", out.KeyID, out.UserID, out.Permission)
	return &out, nil
}
