package main

import (
	"context"
	"log"
	"os"

	"woocart-bridge/internal/config"
	"woocart-bridge/internal/db"
	"woocart-bridge/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := seed.Apply(ctx, pool, db.NewTables(cfg.TablePrefix), cfg.KeyHash, cfg.DefaultCurrency, logger); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied: consumer_key=%s consumer_secret=%s cart=%s coupon=%s",
		seed.ConsumerKey, seed.ConsumerSecret, seed.SessionToken, seed.CouponCode)
}
