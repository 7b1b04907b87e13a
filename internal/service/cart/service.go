// Package cart reads WooCommerce session carts and applies mutations to them.
package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/events"
	"woocart-bridge/internal/livecart"
	"woocart-bridge/internal/service/auth"
)

// CurrencyOption is the WooCommerce option holding the store currency.
const CurrencyOption = "woocommerce_currency"

type sessionGateway interface {
	Load(ctx context.Context, token string) (*domain.SessionRecord, error)
	Save(ctx context.Context, token string, lines []domain.CartLine, coupons []string) error
}

type catalog interface {
	livecart.Catalog
	Fetch(ctx context.Context, ids []int64) ([]domain.Product, error)
	ImageURLs(ctx context.Context, products []domain.Product) map[int64]string
}

type optionRepo interface {
	Get(ctx context.Context, name string) (string, error)
}

type Service struct {
	sessions        sessionGateway
	catalog         catalog
	options         optionRepo
	publisher       events.Publisher
	defaultCurrency string
	logger          *log.Logger
	now             func() time.Time
}

func New(sessions sessionGateway, catalog catalog, options optionRepo, publisher events.Publisher, defaultCurrency string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		sessions:        sessions,
		catalog:         catalog,
		options:         options,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

// View is an enriched cart plus the currency its amounts are in.
type View struct {
	Cart     domain.EnrichedCart
	Currency string
}

// ErrCartNotFound is returned when no session exists for a token.
var ErrCartNotFound = &domain.Error{Kind: domain.ErrNotFound, Message: "Cart not found"}

// Get loads the session for token and joins it with the catalog.
func (s *Service) Get(ctx context.Context, token string) (*View, error) {
	rec, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rec.Cart))
	for _, l := range rec.Cart {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &View{
		Cart: domain.EnrichedCart{
			CartID:   token,
			Session:  *rec,
			Products: products,
			Images:   s.catalog.ImageURLs(ctx, products),
		},
		Currency: s.Currency(ctx),
	}, nil
}

// Currency returns the store currency, falling back to the configured one.
func (s *Service) Currency(ctx context.Context) string {
	if s.options != nil {
		v, err := s.options.Get(ctx, CurrencyOption)
		if err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("cart: currency option error=%v", err)
		}
	}
	return s.defaultCurrency
}

func (s *Service) AddItem(ctx context.Context, token string, in livecart.AddInput) (*View, error) {
	ev := events.CartMutated{Action: events.ActionAddItem, Quantity: in.Quantity}
	return s.mutate(ctx, token, &ev, func(c *livecart.Cart) error {
		key, err := c.Add(ctx, in)
		ev.ItemKey = key
		return err
	})
}

func (s *Service) UpdateItem(ctx context.Context, token, key string, qty int) (*View, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Errorf(domain.ErrValidation, "item_key required")
	}
	ev := events.CartMutated{Action: events.ActionUpdateItem, ItemKey: key, Quantity: qty}
	return s.mutate(ctx, token, &ev, func(c *livecart.Cart) error {
		return c.SetQuantity(ctx, key, qty)
	})
}

func (s *Service) RemoveItem(ctx context.Context, token, key string) (*View, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Errorf(domain.ErrValidation, "item_key required")
	}
	ev := events.CartMutated{Action: events.ActionRemoveItem, ItemKey: key}
	return s.mutate(ctx, token, &ev, func(c *livecart.Cart) error {
		return c.Remove(key)
	})
}

func (s *Service) ApplyCoupon(ctx context.Context, token, code string) (*View, error) {
	ev := events.CartMutated{Action: events.ActionApplyCoupon, CouponCode: livecart.FormatCouponCode(code)}
	return s.mutate(ctx, token, &ev, func(c *livecart.Cart) error {
		return c.ApplyCoupon(ctx, code)
	})
}

func (s *Service) RemoveCoupon(ctx context.Context, token, code string) (*View, error) {
	ev := events.CartMutated{Action: events.ActionRemoveCoupon, CouponCode: livecart.FormatCouponCode(code)}
	return s.mutate(ctx, token, &ev, func(c *livecart.Cart) error {
		return c.RemoveCoupon(code)
	})
}

// mutate loads the session into the request's live cart, applies fn and
// saves cart and coupons back. Nothing is written when fn fails.
func (s *Service) mutate(ctx context.Context, token string, ev *events.CartMutated, fn func(*livecart.Cart) error) (*View, error) {
	rec, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	lc, ok := livecart.FromContext(ctx)
	if !ok {
		lc = livecart.New(s.catalog)
		defer lc.Reset()
	}
	lc.Load(rec.Cart, rec.AppliedCoupons)

	if err := fn(lc); err != nil {
		s.logger.Printf("cart: %s token=%s rejected: %v", ev.Action, token, err)
		return nil, err
	}

	lines, coupons := lc.Contents(), lc.AppliedCoupons()
	if err := s.sessions.Save(ctx, token, lines, coupons); err != nil {
		return nil, err
	}

	ev.CartID = token
	ev.LineCount = len(lines)
	ev.AppliedCoupons = coupons
	ev.OccurredAt = s.now().UTC()
	if id, ok := auth.IdentityFromContext(ctx); ok {
		ev.UserID = id.UserID
	}
	if err := s.publisher.Publish(ctx, *ev); err != nil {
		s.logger.Printf("cart: publish %s token=%s error=%v", ev.Action, token, err)
	}

	return s.Get(ctx, token)
}

func (s *Service) load(ctx context.Context, token string) (*domain.SessionRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrCartNotFound
	}
	rec, err := s.sessions.Load(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return rec, nil
}
