package domain

// SessionField is one top-level entry of a stored WooCommerce session.
// Encoded is true when the value was stored as its own serialized blob and
// had to be decoded a second time.
type SessionField struct {
	Name    string
	Value   any
	Encoded bool
}

// SessionRecord is the decoded value of one session row.
type SessionRecord struct {
	Token          string
	Expiry         int64
	Cart           []CartLine
	AppliedCoupons []string
	Customer       Customer
	Totals         CartTotals
	// Fields keeps every stored field in storage order so a save can merge
	// cart and coupons without touching the rest.
	Fields []SessionField
}

// CartLine is a single line of the session cart.
type CartLine struct {
	Key          string
	ProductID    int64
	VariationID  int64
	Variation    map[string]string
	Quantity     int
	LineSubtotal float64
	LineTotal    float64
	// Raw is the line as it was decoded; unknown keys survive a save.
	Raw any
}

// Discount is the amount taken off the line by coupons.
func (l CartLine) Discount() float64 {
	return l.LineSubtotal - l.LineTotal
}

type Customer struct {
	Country string
	Email   string
	Phone   string
}

type CartTotals struct {
	Subtotal float64
	Total    float64
}
