package session

import (
	"context"
	"errors"
	"os"
	"testing"

	"woocart-bridge/internal/db"
	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_GetAndUpdate(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, db.NewTables("wp_"))
	if err := repo.Upsert(ctx, Row{Key: "t_abc", Value: `a:0:{}`, Expiry: 1748567377}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, "t_abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Value != `a:0:{}` || got.Expiry != 1748567377 {
		t.Fatalf("unexpected row %+v", got)
	}

	if err := repo.UpdateValue(ctx, "t_abc", `a:1:{s:1:"x";i:1;}`); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	got, err = repo.Get(ctx, "t_abc")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Value != `a:1:{s:1:"x";i:1;}` {
		t.Fatalf("value not updated: %q", got.Value)
	}
}

func TestPostgres_MissingSession(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, db.NewTables("wp_"))
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.UpdateValue(ctx, "missing", "a:0:{}"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE wp_woocommerce_sessions RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
