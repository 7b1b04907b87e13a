// Package seed writes a small demo store for local runs: two products, a
// coupon, an API key and a session cart that references the products.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"woocart-bridge/internal/db"
	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/livecart"
	catalogrepo "woocart-bridge/internal/repository/catalog"
	credentialrepo "woocart-bridge/internal/repository/credential"
	optionrepo "woocart-bridge/internal/repository/option"
	sessionrepo "woocart-bridge/internal/repository/session"
	"woocart-bridge/internal/service/auth"
	cartsvc "woocart-bridge/internal/service/cart"
	"woocart-bridge/internal/service/session"
)

const (
	ConsumerKey    = "ck_demo_0000000000000000000000000000000000"
	ConsumerSecret = "cs_demo_0000000000000000000000000000000000"
	SessionToken   = "t_demo0000000000000000000000000"
	CouponCode     = "demo10"
)

var products = []catalogrepo.ProductInput{
	{
		Slug:        "demo-t-shirt",
		Title:       "Demo T-Shirt",
		Description: "<p>Soft cotton tee for <strong>demo</strong> purposes</p>",
		Meta: map[string]string{
			"_sku":           "SKU-DEMO-TSHIRT",
			"_regular_price": "19.99",
			"_price":         "19.99",
			"_stock_status":  "instock",
		},
	},
	{
		Slug:        "demo-mug",
		Title:       "Demo Mug",
		Description: "Ceramic mug with demo logo",
		Meta: map[string]string{
			"_sku":           "SKU-DEMO-MUG",
			"_regular_price": "15.00",
			"_sale_price":    "12.99",
			"_price":         "12.99",
			"_manage_stock":  "yes",
			"_stock":         "25",
			"_stock_status":  "instock",
		},
	},
}

// Apply inserts the demo data. Running it again leaves a single copy of
// every record and resets the demo cart.
func Apply(ctx context.Context, pool *pgxpool.Pool, tables db.Tables, keyHash, currency string, logger *log.Logger) error {
	catalog := catalogrepo.NewPostgres(pool, tables, logger)

	var lines []domain.CartLine
	for _, p := range products {
		id, err := catalog.UpsertProduct(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Slug, err)
		}
		price, err := strconv.ParseFloat(p.Meta["_price"], 64)
		if err != nil {
			return fmt.Errorf("product %s price: %w", p.Slug, err)
		}
		lines = append(lines, domain.CartLine{
			Key:          livecart.LineKey(id, 0, nil),
			ProductID:    id,
			Quantity:     1,
			LineSubtotal: price,
			LineTotal:    price,
		})
	}

	if err := ensureCoupon(ctx, pool, tables, catalog); err != nil {
		return fmt.Errorf("ensure coupon: %w", err)
	}
	if err := ensureAPIKey(ctx, credentialrepo.NewPostgres(pool, tables, logger), keyHash); err != nil {
		return fmt.Errorf("ensure api key: %w", err)
	}
	if err := optionrepo.NewPostgres(pool, tables).Set(ctx, cartsvc.CurrencyOption, currency); err != nil {
		return fmt.Errorf("set currency: %w", err)
	}

	sessions := session.NewGateway(sessionrepo.NewPostgres(pool, tables), logger)
	if err := sessions.Save(ctx, SessionToken, lines, nil); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func ensureCoupon(ctx context.Context, pool *pgxpool.Pool, tables db.Tables, catalog catalogrepo.Repository) error {
	_, err := catalog.FindCouponID(ctx, CouponCode)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var id int64
	q := `
INSERT INTO ` + tables.Posts + ` (post_title, post_name, post_type, post_status)
VALUES ($1, $1, 'shop_coupon', 'publish')
RETURNING id
`
	if err := pool.QueryRow(ctx, q, CouponCode).Scan(&id); err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
INSERT INTO `+tables.PostMeta+` (post_id, meta_key, meta_value)
VALUES ($1, 'discount_type', 'percent'), ($1, 'coupon_amount', '10')
`, id)
	return err
}

func ensureAPIKey(ctx context.Context, repo credentialrepo.Repository, keyHash string) error {
	hashed := auth.HashKey(keyHash, ConsumerKey)
	_, err := repo.GetByConsumerKey(ctx, hashed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_, err = repo.Create(ctx, domain.APICredential{
		UserID:       1,
		Description:  "demo key",
		Permission:   domain.PermissionReadWrite,
		HashedKey:    hashed,
		Secret:       ConsumerSecret,
		TruncatedKey: ConsumerKey[len(ConsumerKey)-7:],
	})
	return err
}
