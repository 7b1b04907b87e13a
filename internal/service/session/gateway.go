// Package session reads and writes WooCommerce sessions and resolves the
// session token a browser carries.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
	sessionrepo "woocart-bridge/internal/repository/session"
)

// DefaultExpiry matches WooCommerce's 48 hour guest session lifetime.
const DefaultExpiry = 48 * time.Hour

// nestedMarker is the prefix of a field stored as its own serialized array.
const nestedMarker = "a:"

type Gateway struct {
	repo   sessionrepo.Repository
	logger *log.Logger
	now    func() time.Time
}

func NewGateway(repo sessionrepo.Repository, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Gateway{repo: repo, logger: logger, now: time.Now}
}

// Load returns the decoded session for token. A missing row is
// domain.ErrNotFound.
func (g *Gateway) Load(ctx context.Context, token string) (*domain.SessionRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrNotFound
	}
	row, err := g.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	rec, err := Decode(row.Value)
	if err != nil {
		g.logger.Printf("session: decode token=%s error=%v", token, err)
		return nil, domain.Unavailable("session: decode", err)
	}
	rec.Token = row.Key
	rec.Expiry = row.Expiry
	return rec, nil
}

// Save overwrites cart and applied_coupons of the stored session and keeps
// every other field. A missing session is created with the default expiry.
// The read and the write are separate statements, so a storefront write in
// between is lost.
func (g *Gateway) Save(ctx context.Context, token string, lines []domain.CartLine, coupons []string) error {
	if strings.TrimSpace(token) == "" {
		return domain.Errorf(domain.ErrValidation, "session token required")
	}
	row, err := g.repo.Get(ctx, token)
	var rec *domain.SessionRecord
	created := false
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec = &domain.SessionRecord{}
		row = &sessionrepo.Row{Key: token, Expiry: g.now().Add(DefaultExpiry).Unix()}
		created = true
	case err != nil:
		return err
	default:
		rec, err = Decode(row.Value)
		if err != nil {
			return domain.Unavailable("session: decode", err)
		}
	}

	rec.Cart = lines
	rec.AppliedCoupons = coupons
	value, err := Encode(rec)
	if err != nil {
		return domain.Unavailable("session: encode", err)
	}
	row.Value = value

	if created {
		err = g.repo.Upsert(ctx, *row)
	} else {
		err = g.repo.UpdateValue(ctx, row.Key, row.Value)
	}
	if err != nil {
		g.logger.Printf("session: save token=%s error=%v", token, err)
		return err
	}
	g.logger.Printf("session: saved token=%s lines=%d coupons=%d", token, len(lines), len(coupons))
	return nil
}

// Decode parses a stored session value. Fields that are themselves
// serialized arrays are decoded once more; deeper nesting is left as is.
func Decode(value string) (*domain.SessionRecord, error) {
	decoded, err := phpser.Unmarshal([]byte(value))
	if err != nil {
		return nil, err
	}
	outer := phpser.AsArray(decoded)
	if outer == nil {
		return nil, errors.New("session value is not an array")
	}

	rec := &domain.SessionRecord{Fields: make([]domain.SessionField, 0, outer.Len())}
	for _, p := range outer.Pairs {
		field := domain.SessionField{Name: p.Key, Value: p.Value}
		if s, ok := p.Value.(string); ok && strings.HasPrefix(s, nestedMarker) {
			inner, err := phpser.Unmarshal([]byte(s))
			if err != nil {
				return nil, fmt.Errorf("session field %s: %w", p.Key, err)
			}
			field.Value = inner
			field.Encoded = true
		}
		rec.Fields = append(rec.Fields, field)
	}

	for _, f := range rec.Fields {
		switch f.Name {
		case fieldCart:
			rec.Cart = decodeLines(f.Value)
		case fieldAppliedCoupons:
			rec.AppliedCoupons = decodeStrings(f.Value)
		case fieldCustomer:
			rec.Customer = decodeCustomer(f.Value)
		case fieldCartTotals:
			rec.Totals = decodeTotals(f.Value)
		}
	}
	return rec, nil
}

// Encode serializes rec, taking cart and applied_coupons from the typed
// fields and everything else from rec.Fields. A field that was stored as a
// nested blob is written back as one.
func Encode(rec *domain.SessionRecord) (string, error) {
	fields := rec.Fields
	if !hasField(fields, fieldCart) {
		fields = append(fields, domain.SessionField{Name: fieldCart, Encoded: true})
	}
	if !hasField(fields, fieldAppliedCoupons) {
		fields = append(fields, domain.SessionField{Name: fieldAppliedCoupons, Encoded: true})
	}

	outer := phpser.NewArray()
	for _, f := range fields {
		value := f.Value
		switch f.Name {
		case fieldCart:
			value = encodeLines(rec.Cart)
		case fieldAppliedCoupons:
			value = encodeStrings(rec.AppliedCoupons)
		}
		if f.Encoded {
			blob, err := phpser.Marshal(value)
			if err != nil {
				return "", err
			}
			value = string(blob)
		}
		outer.Set(f.Name, value)
	}
	out, err := phpser.Marshal(outer)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func hasField(fields []domain.SessionField, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
