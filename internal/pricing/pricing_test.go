package pricing

import (
	"math"
	"testing"

	"woocart-bridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:         "0.00",
		10:        "10.00",
		9.999:     "10.00",
		1234.5:    "1234.50",
		0.125:     "0.13",
		-0.001:    "0.00",
		-2.5:      "-2.50",
		1e6 + .25: "1000000.25",
		1.005:     "1.01",
		2.675:     "2.68",
		-1.005:    "-1.01",
		999.995:   "1000.00",
		0.995:     "1.00",
		1e20:      "100000000000000000000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(in), "%v", in)
	}
	assert.Equal(t, "0.00", FormatAmount(math.NaN()))
	assert.Equal(t, "0.00", FormatAmount(math.Inf(-1)))
	// Arithmetic noise below 15 significant digits does not change rounding.
	assert.Equal(t, "1.01", FormatAmount(1.015-0.01))
}

func TestPriceLineDiscount(t *testing.T) {
	line := domain.CartLine{LineSubtotal: 100, LineTotal: 90}
	p := PriceLine(line, domain.Product{})
	assert.True(t, p.HasDiscount())
	assert.Equal(t, "10.00", FormatAmount(p.Discount))

	line = domain.CartLine{LineSubtotal: 100, LineTotal: 100}
	p = PriceLine(line, domain.Product{})
	assert.False(t, p.HasDiscount())
}

func TestPriceLineCompareAt(t *testing.T) {
	noSale := domain.Product{Meta: map[string]any{"_regular_price": "50.00", "_price": "50.00"}}
	p := PriceLine(domain.CartLine{}, noSale)
	assert.Nil(t, p.CompareAtPrice)
	assert.Equal(t, 50.0, p.UnitPrice)

	sale := domain.Product{Meta: map[string]any{"_regular_price": "60.00", "_price": "50.00"}}
	p = PriceLine(domain.CartLine{}, sale)
	require.NotNil(t, p.CompareAtPrice)
	assert.Equal(t, "60.00", FormatAmount(*p.CompareAtPrice))

	// A regular price below the active price is not a compare-at price.
	odd := domain.Product{Meta: map[string]any{"_regular_price": "40", "_price": "50"}}
	assert.Nil(t, PriceLine(domain.CartLine{}, odd).CompareAtPrice)
}

func TestCartCostAndMoney(t *testing.T) {
	c := CartCost(domain.CartTotals{Subtotal: 140, Total: 130.5})
	assert.Equal(t, Cost{Subtotal: 140, Total: 130.5}, c)
	assert.Equal(t, Money{Amount: "130.50", CurrencyCode: "EUR"}, NewMoney(c.Total, "EUR"))
}
