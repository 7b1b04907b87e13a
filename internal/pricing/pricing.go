// Package pricing derives line and cart amounts from session totals and
// product meta.
package pricing

import (
	"math"
	"strconv"
	"strings"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
)

// Money is an amount already formatted for display.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// NewMoney formats v in currency.
func NewMoney(v float64, currency string) Money {
	return Money{Amount: FormatAmount(v), CurrencyCode: currency}
}

// FormatAmount renders v with exactly two decimals the way PHP's
// number_format does: v is first cut to 15 significant digits, then the
// decimal digits are rounded half away from zero, so 1.005 gives "1.01".
// It never produces "-0.00".
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	neg := v < 0
	pre, _ := strconv.ParseFloat(strconv.FormatFloat(math.Abs(v), 'g', 15, 64), 64)
	whole, frac, _ := strings.Cut(strconv.FormatFloat(pre, 'f', -1, 64), ".")
	frac += "000"

	digits := []byte(whole + frac[:2])
	if frac[2] >= '5' {
		i := len(digits) - 1
		for ; i >= 0 && digits[i] == '9'; i-- {
			digits[i] = '0'
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		} else {
			digits[i]++
		}
	}

	intPart := strings.TrimLeft(string(digits[:len(digits)-2]), "0")
	if intPart == "" {
		intPart = "0"
	}
	out := intPart + "." + string(digits[len(digits)-2:])
	if neg && out != "0.00" {
		return "-" + out
	}
	return out
}

type LinePricing struct {
	UnitPrice float64
	// CompareAtPrice is set only when the regular price is above the price.
	CompareAtPrice *float64
	Subtotal       float64
	Total          float64
	Discount       float64
}

// HasDiscount reports whether a discount allocation should be emitted.
func (p LinePricing) HasDiscount() bool {
	return p.Discount > 0
}

// PriceLine prices a cart line. A missing product prices at zero.
func PriceLine(line domain.CartLine, product domain.Product) LinePricing {
	price := phpser.ToFloat(product.Meta[domain.MetaPrice])
	regular := phpser.ToFloat(product.Meta[domain.MetaRegularPrice])

	out := LinePricing{
		UnitPrice: price,
		Subtotal:  line.LineSubtotal,
		Total:     line.LineTotal,
		Discount:  line.Discount(),
	}
	if regular > price {
		out.CompareAtPrice = &regular
	}
	return out
}

type Cost struct {
	Subtotal float64
	Total    float64
}

// CartCost takes the cart level amounts from stored totals. Tax and duty
// are not computed here.
func CartCost(t domain.CartTotals) Cost {
	return Cost{Subtotal: t.Subtotal, Total: t.Total}
}
