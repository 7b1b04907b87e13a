package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
	sessionrepo "woocart-bridge/internal/repository/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows     map[string]sessionrepo.Row
	getErr   error
	updated  int
	upserted int
}

func (s *stubRepo) Get(_ context.Context, key string) (*sessionrepo.Row, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	row, ok := s.rows[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (s *stubRepo) UpdateValue(_ context.Context, key, value string) error {
	row, ok := s.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.Value = value
	s.rows[key] = row
	s.updated++
	return nil
}

func (s *stubRepo) Upsert(_ context.Context, row sessionrepo.Row) error {
	if s.rows == nil {
		s.rows = map[string]sessionrepo.Row{}
	}
	s.rows[row.Key] = row
	s.upserted++
	return nil
}

func phpString(t *testing.T, v any) string {
	t.Helper()
	b, err := phpser.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// storedSession builds a value shaped like WC_Session_Handler output: the
// outer array holds each field as its own serialized string.
func storedSession(t *testing.T) string {
	t.Helper()
	line := func(key string, pid int64, sub, total float64) *phpser.Array {
		a := phpser.NewArray()
		a.Set("key", key)
		a.Set("product_id", pid)
		a.Set("variation_id", int64(0))
		a.Set("variation", phpser.NewArray())
		a.Set("quantity", int64(2))
		a.Set("data_hash", "b5c1d5ca8bae6d4896cf1807cdf763f0")
		a.Set("line_subtotal", sub)
		a.Set("line_total", total)
		return a
	}
	cart := phpser.NewArray()
	cart.Set("k2", line("k2", 12, 100, 90))
	cart.Set("k1", line("k1", 11, 40, 40))

	coupons := phpser.NewArray()
	coupons.Append("summer10")

	customer := phpser.NewArray()
	customer.Set("id", "0")
	customer.Set("country", "DE")
	customer.Set("email", "a@example.com")

	totals := phpser.NewArray()
	totals.Set("subtotal", "140.00")
	totals.Set("total", 130.0)
	totals.Set("discount_total", 10.0)

	outer := phpser.NewArray()
	outer.Set("cart", phpString(t, cart))
	outer.Set("cart_totals", phpString(t, totals))
	outer.Set("applied_coupons", phpString(t, coupons))
	outer.Set("customer", phpString(t, customer))
	outer.Set("chosen_shipping_methods", phpString(t, phpser.NewArray()))
	outer.Set("wc_notices", nil)
	outer.Set("previous_shipping_methods", "s:4:\"flat\";")
	return phpString(t, outer)
}

func TestGatewayLoadDecodesNestedFields(t *testing.T) {
	repo := &stubRepo{rows: map[string]sessionrepo.Row{
		"tok": {Key: "tok", Value: storedSession(t), Expiry: 1700000000},
	}}
	g := NewGateway(repo, nil)

	rec, err := g.Load(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "tok", rec.Token)
	assert.Equal(t, int64(1700000000), rec.Expiry)
	require.Len(t, rec.Cart, 2)
	assert.Equal(t, "k2", rec.Cart[0].Key)
	assert.Equal(t, int64(12), rec.Cart[0].ProductID)
	assert.Equal(t, 2, rec.Cart[0].Quantity)
	assert.InDelta(t, 10.0, rec.Cart[0].Discount(), 1e-9)
	assert.Equal(t, "k1", rec.Cart[1].Key)
	assert.Equal(t, []string{"summer10"}, rec.AppliedCoupons)
	assert.Equal(t, domain.Customer{Country: "DE", Email: "a@example.com"}, rec.Customer)
	assert.InDelta(t, 140.0, rec.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 130.0, rec.Totals.Total, 1e-9)

	// A string that is serialized but not an array stays a string.
	for _, f := range rec.Fields {
		if f.Name == "previous_shipping_methods" {
			assert.False(t, f.Encoded)
			assert.Equal(t, "s:4:\"flat\";", f.Value)
		}
	}
}

func TestGatewayLoadMissingSession(t *testing.T) {
	g := NewGateway(&stubRepo{}, nil)

	_, err := g.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = g.Load(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGatewayLoadCorruptValue(t *testing.T) {
	repo := &stubRepo{rows: map[string]sessionrepo.Row{
		"bad":    {Key: "bad", Value: "a:1:{s:4:\"cart\";s:8:\"a:1:{i:0\";}"},
		"scalar": {Key: "scalar", Value: "i:5;"},
	}}
	g := NewGateway(repo, nil)

	_, err := g.Load(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	_, err = g.Load(context.Background(), "scalar")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestGatewayLoadRejectsImpossibleArrayLength(t *testing.T) {
	repo := &stubRepo{rows: map[string]sessionrepo.Row{
		"neg":  {Key: "neg", Value: `a:1:{s:4:"cart";s:7:"a:-1:{}";}`},
		"huge": {Key: "huge", Value: `a:99999999999999:{}`},
	}}
	g := NewGateway(repo, nil)

	_, err := g.Load(context.Background(), "neg")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, phpser.ErrSyntax)

	_, err = g.Load(context.Background(), "huge")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestDecodeKeepsSyntaxErrorOfNestedField(t *testing.T) {
	_, err := Decode(`a:1:{s:4:"cart";s:8:"a:1:{i:0";}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, phpser.ErrSyntax)
	assert.Contains(t, err.Error(), "session field cart")
}

func TestGatewaySaveMergesCartAndCoupons(t *testing.T) {
	original := storedSession(t)
	repo := &stubRepo{rows: map[string]sessionrepo.Row{
		"tok": {Key: "tok", Value: original, Expiry: 1700000000},
	}}
	g := NewGateway(repo, nil)

	rec, err := g.Load(context.Background(), "tok")
	require.NoError(t, err)

	lines := []domain.CartLine{rec.Cart[1]}
	lines[0].Quantity = 5
	require.NoError(t, g.Save(context.Background(), "tok", lines, []string{"vip"}))
	assert.Equal(t, 1, repo.updated)
	assert.Equal(t, 0, repo.upserted)

	saved := repo.rows["tok"]
	assert.Equal(t, int64(1700000000), saved.Expiry)

	after, err := g.Load(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, after.Cart, 1)
	assert.Equal(t, "k1", after.Cart[0].Key)
	assert.Equal(t, 5, after.Cart[0].Quantity)
	assert.Equal(t, []string{"vip"}, after.AppliedCoupons)
	assert.Equal(t, rec.Customer, after.Customer)
	assert.Equal(t, rec.Totals, after.Totals)

	// Unmodelled keys of the line survive.
	raw := phpser.AsArray(after.Cart[0].Raw)
	hash, ok := raw.Get("data_hash")
	require.True(t, ok)
	assert.Equal(t, "b5c1d5ca8bae6d4896cf1807cdf763f0", hash)

	// Fields stay blobs in the same order.
	outer, err := phpser.Unmarshal([]byte(saved.Value))
	require.NoError(t, err)
	arr := phpser.AsArray(outer)
	assert.Equal(t, []string{
		"cart", "cart_totals", "applied_coupons", "customer",
		"chosen_shipping_methods", "wc_notices", "previous_shipping_methods",
	}, pairKeys(arr))
	cartBlob, _ := arr.Get("cart")
	assert.True(t, strings.HasPrefix(cartBlob.(string), "a:1:{"))
}

func TestGatewaySaveRoundTripIsStable(t *testing.T) {
	original := storedSession(t)
	repo := &stubRepo{rows: map[string]sessionrepo.Row{"tok": {Key: "tok", Value: original}}}
	g := NewGateway(repo, nil)

	rec, err := g.Load(context.Background(), "tok")
	require.NoError(t, err)
	require.NoError(t, g.Save(context.Background(), "tok", rec.Cart, rec.AppliedCoupons))

	again, err := g.Load(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, len(rec.Cart), len(again.Cart))
	for i := range rec.Cart {
		assert.Equal(t, rec.Cart[i].Key, again.Cart[i].Key)
		assert.Equal(t, rec.Cart[i].LineTotal, again.Cart[i].LineTotal)
	}
}

func TestEncodeKeepsUnchangedLineScalars(t *testing.T) {
	in := `a:1:{s:4:"cart";s:131:"a:1:{s:2:"k1";a:5:{s:3:"key";s:2:"k1";s:10:"product_id";i:11;s:8:"quantity";i:2;s:13:"line_subtotal";i:40;s:10:"line_total";i:40;}}";}`
	rec, err := Decode(in)
	require.NoError(t, err)

	out, err := Encode(rec)
	require.NoError(t, err)
	assert.Contains(t, out, `s:13:"line_subtotal";i:40;`)
	assert.Contains(t, out, `s:10:"line_total";i:40;`)
	assert.Contains(t, out, `s:8:"quantity";i:2;`)

	rec.Cart[0].LineTotal = 35.5
	out, err = Encode(rec)
	require.NoError(t, err)
	assert.Contains(t, out, `s:10:"line_total";d:35.5;`)
	assert.Contains(t, out, `s:13:"line_subtotal";i:40;`)
}

func TestGatewaySaveCreatesMissingSession(t *testing.T) {
	repo := &stubRepo{}
	g := NewGateway(repo, nil)
	g.now = func() time.Time { return time.Unix(1000, 0) }

	lines := []domain.CartLine{{Key: "abc", ProductID: 9, Quantity: 1, LineSubtotal: 5, LineTotal: 5}}
	require.NoError(t, g.Save(context.Background(), "fresh", lines, nil))
	assert.Equal(t, 1, repo.upserted)
	assert.Equal(t, int64(1000)+int64(DefaultExpiry.Seconds()), repo.rows["fresh"].Expiry)

	rec, err := g.Load(context.Background(), "fresh")
	require.NoError(t, err)
	require.Len(t, rec.Cart, 1)
	assert.Equal(t, int64(9), rec.Cart[0].ProductID)
	assert.Empty(t, rec.AppliedCoupons)
}

func TestGatewaySavePropagatesStoreFailure(t *testing.T) {
	repo := &stubRepo{getErr: domain.Unavailable("session repo: get", errors.New("down"))}
	g := NewGateway(repo, nil)

	err := g.Save(context.Background(), "tok", nil, nil)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	err = g.Save(context.Background(), " ", nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func pairKeys(arr *phpser.Array) []string {
	keys := make([]string, 0, arr.Len())
	for _, p := range arr.Pairs {
		keys = append(keys, p.Key)
	}
	return keys
}
