package livecart

import "context"

type cartKey struct{}

// WithCart stores c in ctx.
func WithCart(ctx context.Context, c *Cart) context.Context {
	return context.WithValue(ctx, cartKey{}, c)
}

// FromContext returns the cart stored by WithCart.
func FromContext(ctx context.Context) (*Cart, bool) {
	c, ok := ctx.Value(cartKey{}).(*Cart)
	return c, ok && c != nil
}
