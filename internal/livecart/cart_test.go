package livecart

import (
	"context"
	"testing"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products map[int64]domain.Product
	coupons  map[string]bool
}

func (s stubCatalog) Product(_ context.Context, id int64) (domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (s stubCatalog) CouponExists(_ context.Context, code string) (bool, error) {
	return s.coupons[code], nil
}

func newCatalog() stubCatalog {
	return stubCatalog{
		products: map[int64]domain.Product{
			1: {ID: 1, Title: "Cap", Meta: map[string]any{"_price": "10"}},
			2: {ID: 2, Title: "Hoodie", Meta: map[string]any{"_price": "50", "_manage_stock": "yes", "_stock": "3"}},
			3: {ID: 3, Title: "Gone", Meta: map[string]any{"_price": "5", "_stock_status": "outofstock"}},
		},
		coupons: map[string]bool{"summer10": true},
	}
}

func TestLineKeyMatchesWooCommerce(t *testing.T) {
	// md5("1")
	assert.Equal(t, "c4ca4238a0b923820dcc509a6f75849b", LineKey(1, 0, nil))
	// md5("12_15")
	assert.Equal(t, "2acb82dd0b70965d92565a4abccc6008", LineKey(12, 15, nil))
	assert.Equal(t,
		LineKey(12, 15, map[string]string{"attribute_pa_size": "l", "attribute_pa_color": "red"}),
		LineKey(12, 15, map[string]string{"attribute_pa_color": "red", "attribute_pa_size": "l"}))
}

func TestAddNewAndMergeLines(t *testing.T) {
	c := New(newCatalog())
	ctx := context.Background()

	key, err := c.Add(ctx, AddInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	again, err := c.Add(ctx, AddInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, key, again)

	lines := c.Contents()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.InDelta(t, 30.0, lines[0].LineSubtotal, 1e-9)
	assert.InDelta(t, 30.0, lines[0].LineTotal, 1e-9)
}

func TestAddRejectsWithoutChangingCart(t *testing.T) {
	c := New(newCatalog())
	ctx := context.Background()
	c.Load([]domain.CartLine{{Key: LineKey(2, 0, nil), ProductID: 2, Quantity: 2, LineSubtotal: 100, LineTotal: 100}}, nil)
	before := c.Contents()

	_, err := c.Add(ctx, AddInput{ProductID: 2, Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrMutationRejected)
	_, err = c.Add(ctx, AddInput{ProductID: 3, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrMutationRejected)
	_, err = c.Add(ctx, AddInput{ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrMutationRejected)
	_, err = c.Add(ctx, AddInput{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, before, c.Contents())
}

func TestSetQuantity(t *testing.T) {
	c := New(newCatalog())
	ctx := context.Background()
	c.Load([]domain.CartLine{
		{Key: "a", ProductID: 1, Quantity: 2, LineSubtotal: 20, LineTotal: 18},
		{Key: "b", ProductID: 2, Quantity: 1, LineSubtotal: 50, LineTotal: 50},
	}, nil)

	require.NoError(t, c.SetQuantity(ctx, "a", 4))
	lines := c.Contents()
	assert.Equal(t, 4, lines[0].Quantity)
	assert.InDelta(t, 40.0, lines[0].LineSubtotal, 1e-9)
	assert.InDelta(t, 36.0, lines[0].LineTotal, 1e-9)

	assert.ErrorIs(t, c.SetQuantity(ctx, "missing", 1), domain.ErrNotFound)
	assert.ErrorIs(t, c.SetQuantity(ctx, "a", -1), domain.ErrValidation)
	assert.ErrorIs(t, c.SetQuantity(ctx, "b", 4), domain.ErrMutationRejected)
	assert.Equal(t, lines, c.Contents())

	require.NoError(t, c.SetQuantity(ctx, "a", 0))
	lines = c.Contents()
	require.Len(t, lines, 1)
	assert.Equal(t, "b", lines[0].Key)
}

func TestSetQuantityScalesLineTaxes(t *testing.T) {
	rates := phpser.NewArray()
	rates.Set("1", 2.0)
	taxData := phpser.NewArray()
	taxData.Set("subtotal", rates)
	taxData.Set("total", rates.Clone())
	raw := phpser.NewArray()
	raw.Set("line_tax", 1.8)
	raw.Set("line_subtotal_tax", "2")
	raw.Set("line_tax_data", taxData)

	c := New(newCatalog())
	c.Load([]domain.CartLine{{Key: "a", ProductID: 1, Quantity: 2, LineSubtotal: 20, LineTotal: 18, Raw: raw}}, nil)
	require.NoError(t, c.SetQuantity(context.Background(), "a", 3))

	got := phpser.AsArray(c.Contents()[0].Raw)
	tax, _ := got.Get("line_tax")
	assert.InDelta(t, 2.7, tax.(float64), 1e-9)
	subTax, _ := got.Get("line_subtotal_tax")
	assert.InDelta(t, 3.0, subTax.(float64), 1e-9)
	data, _ := got.Get("line_tax_data")
	total, _ := phpser.AsArray(data).Get("total")
	rate, _ := phpser.AsArray(total).Get("1")
	assert.InDelta(t, 3.0, rate.(float64), 1e-9)

	// The loaded input is not modified.
	orig, _ := raw.Get("line_tax")
	assert.Equal(t, 1.8, orig)
}

func TestRemove(t *testing.T) {
	c := New(newCatalog())
	c.Load([]domain.CartLine{{Key: "a"}, {Key: "b"}, {Key: "c"}}, nil)

	require.NoError(t, c.Remove("b"))
	assert.ErrorIs(t, c.Remove("b"), domain.ErrNotFound)

	var keys []string
	for _, l := range c.Contents() {
		keys = append(keys, l.Key)
	}
	assert.Equal(t, []string{"a", "c"}, keys)
}

func TestCoupons(t *testing.T) {
	c := New(newCatalog())
	ctx := context.Background()

	require.NoError(t, c.ApplyCoupon(ctx, "  SUMMER10 "))
	assert.Equal(t, []string{"summer10"}, c.AppliedCoupons())
	assert.ErrorIs(t, c.ApplyCoupon(ctx, "summer10"), domain.ErrMutationRejected)
	assert.ErrorIs(t, c.ApplyCoupon(ctx, "bogus"), domain.ErrMutationRejected)
	assert.ErrorIs(t, c.ApplyCoupon(ctx, ""), domain.ErrValidation)

	assert.ErrorIs(t, c.RemoveCoupon("bogus"), domain.ErrNotFound)
	require.NoError(t, c.RemoveCoupon("Summer10"))
	assert.Empty(t, c.AppliedCoupons())
}

func TestLoadCopiesAndResetEmpties(t *testing.T) {
	c := New(newCatalog())
	src := []domain.CartLine{{Key: "a", Quantity: 1, Variation: map[string]string{"size": "m"}}}
	c.Load(src, []string{"x"})
	src[0].Quantity = 9
	src[0].Variation["size"] = "xl"

	lines := c.Contents()
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "m", lines[0].Variation["size"])
	assert.False(t, c.IsEmpty())

	c.Reset()
	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.Contents())
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	c := New(newCatalog())
	got, ok := FromContext(WithCart(context.Background(), c))
	require.True(t, ok)
	assert.Same(t, c, got)
}
