package option

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

func TestPostgres_SetAndGet(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE wp_options RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewPostgres(pool, db.NewTables("wp_"))
	if _, err := repo.Get(ctx, "woocommerce_currency"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Set(ctx, "woocommerce_currency", "EUR"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "woocommerce_currency", "INR"); err != nil {
		t.Fatalf("Set again: %v", err)
	}
	got, err := repo.Get(ctx, "woocommerce_currency")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "INR" {
		t.Fatalf("expected INR, got %q", got)
	}
}
