package session

import (
	"sort"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
)

// Session field names written by WC_Session_Handler.
const (
	fieldCart           = "cart"
	fieldAppliedCoupons = "applied_coupons"
	fieldCustomer       = "customer"
	fieldCartTotals     = "cart_totals"
)

func decodeLines(v any) []domain.CartLine {
	arr := phpser.AsArray(v)
	if arr == nil {
		return nil
	}
	lines := make([]domain.CartLine, 0, arr.Len())
	for _, p := range arr.Pairs {
		item := phpser.AsArray(p.Value)
		if item == nil {
			continue
		}
		lines = append(lines, decodeLine(p.Key, item))
	}
	return lines
}

func decodeLine(key string, item *phpser.Array) domain.CartLine {
	get := func(k string) any {
		v, _ := item.Get(k)
		return v
	}
	line := domain.CartLine{
		Key:          key,
		ProductID:    phpser.ToInt(get("product_id")),
		VariationID:  phpser.ToInt(get("variation_id")),
		Quantity:     int(phpser.ToInt(get("quantity"))),
		LineSubtotal: phpser.ToFloat(get("line_subtotal")),
		LineTotal:    phpser.ToFloat(get("line_total")),
		Raw:          item,
	}
	if k := phpser.ToString(get("key")); k != "" {
		line.Key = k
	}
	if attrs := phpser.AsArray(get("variation")); attrs.Len() > 0 {
		line.Variation = make(map[string]string, attrs.Len())
		for _, a := range attrs.Pairs {
			line.Variation[a.Key] = phpser.ToString(a.Value)
		}
	}
	return line
}

// encodeLines builds the cart array keyed by line key. Keys of the original
// line that the bridge does not model are carried over.
func encodeLines(lines []domain.CartLine) *phpser.Array {
	out := phpser.NewArray()
	for _, l := range lines {
		item := phpser.NewArray()
		if raw := phpser.AsArray(l.Raw); raw != nil {
			item = raw.Clone()
		}
		item.Set("key", l.Key)
		setInt(item, "product_id", l.ProductID)
		setInt(item, "variation_id", l.VariationID)
		variation := phpser.NewArray()
		names := make([]string, 0, len(l.Variation))
		for k := range l.Variation {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			variation.Set(k, l.Variation[k])
		}
		item.Set("variation", variation)
		setInt(item, "quantity", int64(l.Quantity))
		setFloat(item, "line_subtotal", l.LineSubtotal)
		setFloat(item, "line_total", l.LineTotal)
		out.Set(l.Key, item)
	}
	return out
}

// setInt and setFloat keep the stored scalar when it already holds v, so
// untouched lines are written back byte for byte.
func setInt(item *phpser.Array, key string, v int64) {
	if old, ok := item.Get(key); ok && old != nil && phpser.ToInt(old) == v {
		return
	}
	item.Set(key, v)
}

func setFloat(item *phpser.Array, key string, v float64) {
	if old, ok := item.Get(key); ok && old != nil && phpser.ToFloat(old) == v {
		return
	}
	item.Set(key, v)
}

func decodeStrings(v any) []string {
	arr := phpser.AsArray(v)
	out := make([]string, 0, arr.Len())
	for _, val := range arr.Values() {
		out = append(out, phpser.ToString(val))
	}
	return out
}

func encodeStrings(values []string) *phpser.Array {
	out := phpser.NewArray()
	for _, v := range values {
		out.Append(v)
	}
	return out
}

func decodeCustomer(v any) domain.Customer {
	arr := phpser.AsArray(v)
	str := func(k string) string {
		val, _ := arr.Get(k)
		return phpser.ToString(val)
	}
	c := domain.Customer{
		Country: str("country"),
		Email:   str("email"),
		Phone:   str("phone"),
	}
	if c.Country == "" {
		c.Country = str("shipping_country")
	}
	return c
}

func decodeTotals(v any) domain.CartTotals {
	arr := phpser.AsArray(v)
	num := func(k string) float64 {
		val, _ := arr.Get(k)
		return phpser.ToFloat(val)
	}
	return domain.CartTotals{
		Subtotal: num("subtotal"),
		Total:    num("total"),
	}
}
