package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"strings"

	"woocart-bridge/internal/db"
	"woocart-bridge/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	tables db.Tables
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, tables db.Tables, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, tables: tables, logger: logger}
}

func (r *postgresRepo) ListProducts(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `
SELECT id, post_title, post_content
FROM ` + r.tables.Posts + `
WHERE id = ANY($1) AND post_type = 'product'
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Printf("catalog repo: list ids=%v error=%v", ids, err)
		return nil, domain.Unavailable("catalog repo: list", err)
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description); err != nil {
			return nil, domain.Unavailable("catalog repo: scan", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("catalog repo: list rows error=%v", err)
		return nil, domain.Unavailable("catalog repo: list", err)
	}
	r.logger.Printf("catalog repo: list requested=%d found=%d", len(ids), len(result))
	return result, nil
}

func (r *postgresRepo) ListMeta(ctx context.Context, postID int64) (map[string]string, error) {
	q := `
SELECT meta_key, COALESCE(meta_value, '')
FROM ` + r.tables.PostMeta + `
WHERE post_id = $1 AND meta_key IS NOT NULL
ORDER BY meta_id ASC
`
	rows, err := r.pool.Query(ctx, q, postID)
	if err != nil {
		r.logger.Printf("catalog repo: meta post_id=%d error=%v", postID, err)
		return nil, domain.Unavailable("catalog repo: meta", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, domain.Unavailable("catalog repo: scan meta", err)
		}
		// Later rows win, as with a plain key => value fold.
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("catalog repo: meta", err)
	}
	return meta, nil
}

func (r *postgresRepo) ListAttachments(ctx context.Context, ids []int64) ([]Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `
SELECT p.id, COALESCE(m.meta_value, ''), p.guid
FROM ` + r.tables.Posts + ` p
LEFT JOIN ` + r.tables.PostMeta + ` m ON m.post_id = p.id AND m.meta_key = '_wp_attached_file'
WHERE p.id = ANY($1) AND p.post_type = 'attachment'
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Printf("catalog repo: attachments ids=%v error=%v", ids, err)
		return nil, domain.Unavailable("catalog repo: attachments", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.File, &a.GUID); err != nil {
			return nil, domain.Unavailable("catalog repo: scan attachment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("catalog repo: attachments", err)
	}
	return out, nil
}

func (r *postgresRepo) FindCouponID(ctx context.Context, code string) (int64, error) {
	q := `
SELECT id
FROM ` + r.tables.Posts + `
WHERE post_type = 'shop_coupon' AND post_status = 'publish' AND lower(post_title) = lower($1)
ORDER BY id ASC
LIMIT 1
`
	var id int64
	if err := r.pool.QueryRow(ctx, q, strings.TrimSpace(code)).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: coupon code=%s error=%v", code, err)
		return 0, domain.Unavailable("catalog repo: coupon", err)
	}
	return id, nil
}

// UpsertProduct matches products by slug, rewrites the post and replaces the
// given meta keys. Meta keys not present in the input are left alone.
func (r *postgresRepo) UpsertProduct(ctx context.Context, in ProductInput) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, domain.Unavailable("catalog repo: begin", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
SELECT id FROM `+r.tables.Posts+`
WHERE post_type = 'product' AND post_name = $1
ORDER BY id ASC
LIMIT 1
`, in.Slug).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx, `
INSERT INTO `+r.tables.Posts+` (post_title, post_content, post_name, post_type, post_status)
VALUES ($1, $2, $3, 'product', 'publish')
RETURNING id
`, in.Title, in.Description, in.Slug).Scan(&id); err != nil {
			r.logger.Printf("catalog repo: insert slug=%s error=%v", in.Slug, err)
			return 0, domain.Unavailable("catalog repo: insert", err)
		}
	case err != nil:
		return 0, domain.Unavailable("catalog repo: lookup", err)
	default:
		if _, err := tx.Exec(ctx, `
UPDATE `+r.tables.Posts+`
SET post_title = $2, post_content = $3
WHERE id = $1
`, id, in.Title, in.Description); err != nil {
			return 0, domain.Unavailable("catalog repo: update", err)
		}
	}

	keys := make([]string, 0, len(in.Meta))
	for k := range in.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM `+r.tables.PostMeta+` WHERE post_id = $1 AND meta_key = ANY($2)`, id, keys); err != nil {
			return 0, domain.Unavailable("catalog repo: clear meta", err)
		}
	}
	for _, k := range keys {
		if _, err := tx.Exec(ctx, `INSERT INTO `+r.tables.PostMeta+` (post_id, meta_key, meta_value) VALUES ($1, $2, $3)`, id, k, in.Meta[k]); err != nil {
			return 0, domain.Unavailable("catalog repo: insert meta", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, domain.Unavailable("catalog repo: commit", err)
	}
	r.logger.Printf("catalog repo: upserted slug=%s id=%d meta=%d", in.Slug, id, len(keys))
	return id, nil
}
