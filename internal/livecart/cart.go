// Package livecart is the in-memory cart that mutations operate on. A Cart
// belongs to one request; it is loaded from the session, changed, and its
// contents written back.
package livecart

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
)

// Catalog supplies the product facts the cart needs to accept a line.
type Catalog interface {
	Product(ctx context.Context, id int64) (domain.Product, error)
	CouponExists(ctx context.Context, code string) (bool, error)
}

type Cart struct {
	catalog Catalog
	lines   []domain.CartLine
	coupons []string
}

func New(catalog Catalog) *Cart {
	return &Cart{catalog: catalog}
}

// Load replaces the contents with a copy of lines and coupons.
func (c *Cart) Load(lines []domain.CartLine, coupons []string) {
	c.lines = cloneLines(lines)
	c.coupons = append([]string(nil), coupons...)
}

// Reset empties the cart.
func (c *Cart) Reset() {
	c.lines = nil
	c.coupons = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0 && len(c.coupons) == 0
}

// Contents returns a copy of the lines in cart order.
func (c *Cart) Contents() []domain.CartLine {
	return cloneLines(c.lines)
}

// AppliedCoupons returns a copy of the applied coupon codes.
func (c *Cart) AppliedCoupons() []string {
	return append([]string(nil), c.coupons...)
}

// AddInput describes a line to add.
type AddInput struct {
	ProductID   int64
	VariationID int64
	Variation   map[string]string
	Quantity    int
}

// Add puts a product in the cart, merging with an existing line for the
// same product and variation. It returns the line key.
func (c *Cart) Add(ctx context.Context, in AddInput) (string, error) {
	if in.ProductID <= 0 {
		return "", domain.Errorf(domain.ErrValidation, "product_id must be positive")
	}
	if in.Quantity <= 0 {
		return "", domain.Errorf(domain.ErrValidation, "quantity must be positive")
	}
	stockID := in.ProductID
	if in.VariationID > 0 {
		stockID = in.VariationID
	}
	product, err := c.catalog.Product(ctx, stockID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Errorf(domain.ErrMutationRejected, "product %d does not exist", stockID)
		}
		return "", err
	}

	key := LineKey(in.ProductID, in.VariationID, in.Variation)
	qty := in.Quantity
	idx := c.index(key)
	if idx >= 0 {
		qty += c.lines[idx].Quantity
	}
	if err := checkStock(product, qty); err != nil {
		return "", err
	}

	if idx >= 0 {
		c.lines[idx] = rescale(c.lines[idx], qty)
		return key, nil
	}
	price := phpser.ToFloat(product.Meta[domain.MetaPrice])
	c.lines = append(c.lines, domain.CartLine{
		Key:          key,
		ProductID:    in.ProductID,
		VariationID:  in.VariationID,
		Variation:    cloneVariation(in.Variation),
		Quantity:     qty,
		LineSubtotal: price * float64(qty),
		LineTotal:    price * float64(qty),
	})
	return key, nil
}

// SetQuantity changes the quantity of an existing line. Zero removes it.
func (c *Cart) SetQuantity(ctx context.Context, key string, qty int) error {
	if qty < 0 {
		return domain.Errorf(domain.ErrValidation, "quantity must not be negative")
	}
	idx := c.index(key)
	if idx < 0 {
		return domain.Errorf(domain.ErrNotFound, "cart item %s not found", key)
	}
	if qty == 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}
	line := c.lines[idx]
	if qty > line.Quantity {
		stockID := line.ProductID
		if line.VariationID > 0 {
			stockID = line.VariationID
		}
		product, err := c.catalog.Product(ctx, stockID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Errorf(domain.ErrMutationRejected, "product %d is no longer available", stockID)
			}
			return err
		}
		if err := checkStock(product, qty); err != nil {
			return err
		}
	}
	c.lines[idx] = rescale(line, qty)
	return nil
}

// Remove drops a line.
func (c *Cart) Remove(key string) error {
	idx := c.index(key)
	if idx < 0 {
		return domain.Errorf(domain.ErrNotFound, "cart item %s not found", key)
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

// ApplyCoupon adds a coupon code. Codes are case-insensitive and stored in
// lower case.
func (c *Cart) ApplyCoupon(ctx context.Context, code string) error {
	code = FormatCouponCode(code)
	if code == "" {
		return domain.Errorf(domain.ErrValidation, "coupon code required")
	}
	for _, applied := range c.coupons {
		if applied == code {
			return domain.Errorf(domain.ErrMutationRejected, "coupon code %q already applied", code)
		}
	}
	ok, err := c.catalog.CouponExists(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.ErrMutationRejected, "coupon %q does not exist", code)
	}
	c.coupons = append(c.coupons, code)
	return nil
}

// RemoveCoupon drops an applied coupon code.
func (c *Cart) RemoveCoupon(code string) error {
	code = FormatCouponCode(code)
	if code == "" {
		return domain.Errorf(domain.ErrValidation, "coupon code required")
	}
	for i, applied := range c.coupons {
		if applied == code {
			c.coupons = append(c.coupons[:i], c.coupons[i+1:]...)
			return nil
		}
	}
	return domain.Errorf(domain.ErrNotFound, "coupon %q is not applied", code)
}

func (c *Cart) index(key string) int {
	for i, l := range c.lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}

// LineKey is WooCommerce's cart id: the md5 of product id, variation id and
// the variation attributes joined with '_'.
func LineKey(productID, variationID int64, variation map[string]string) string {
	parts := []string{strconv.FormatInt(productID, 10)}
	if variationID != 0 {
		parts = append(parts, strconv.FormatInt(variationID, 10))
	}
	if len(variation) > 0 {
		names := make([]string, 0, len(variation))
		for k := range variation {
			names = append(names, k)
		}
		sort.Strings(names)
		var b strings.Builder
		for _, k := range names {
			b.WriteString(strings.TrimSpace(k))
			b.WriteString(strings.TrimSpace(variation[k]))
		}
		parts = append(parts, b.String())
	}
	sum := md5.Sum([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(sum[:])
}

// FormatCouponCode normalises a code the way wc_format_coupon_code does for
// plain ASCII codes.
func FormatCouponCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func checkStock(p domain.Product, qty int) error {
	if phpser.ToString(p.Meta[domain.MetaStockStatus]) == "outofstock" {
		return domain.Errorf(domain.ErrMutationRejected, "%q is out of stock", p.Title)
	}
	if phpser.ToString(p.Meta[domain.MetaManageStock]) == "yes" {
		if _, ok := p.Meta[domain.MetaStock]; ok {
			available := phpser.ToInt(p.Meta[domain.MetaStock])
			if int64(qty) > available {
				return domain.Errorf(domain.ErrMutationRejected, "only %d of %q in stock", available, p.Title)
			}
		}
	}
	return nil
}

// rescale keeps the per-unit subtotal and total of a line for a new quantity.
// rescale changes the quantity of a line and scales its amounts, taxes
// included, by the same factor.
func rescale(l domain.CartLine, qty int) domain.CartLine {
	if l.Quantity > 0 && qty != l.Quantity {
		factor := float64(qty) / float64(l.Quantity)
		l.LineSubtotal = l.LineSubtotal / float64(l.Quantity) * float64(qty)
		l.LineTotal = l.LineTotal / float64(l.Quantity) * float64(qty)
		if raw := phpser.AsArray(l.Raw); raw != nil {
			scaleTaxes(raw, factor)
		}
	}
	l.Quantity = qty
	return l
}

// scaleTaxes scales line_tax, line_subtotal_tax and the per-rate amounts
// of line_tax_data in place.
func scaleTaxes(raw *phpser.Array, factor float64) {
	for _, k := range []string{"line_tax", "line_subtotal_tax"} {
		if v, ok := raw.Get(k); ok {
			raw.Set(k, phpser.ToFloat(v)*factor)
		}
	}
	data, _ := raw.Get("line_tax_data")
	for _, part := range phpser.AsArray(data).Values() {
		rates := phpser.AsArray(part)
		if rates == nil {
			continue
		}
		for i := range rates.Pairs {
			rates.Pairs[i].Value = phpser.ToFloat(rates.Pairs[i].Value) * factor
		}
	}
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	for i, l := range lines {
		l.Variation = cloneVariation(l.Variation)
		if raw := phpser.AsArray(l.Raw); raw != nil {
			l.Raw = raw.Clone()
		}
		out[i] = l
	}
	return out
}

func cloneVariation(v map[string]string) map[string]string {
	if v == nil {
		return nil
	}
	out := make(map[string]string, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
