package session

import "context"

// Row is one record of the WooCommerce session table.
type Row struct {
	Key    string
	Value  string
	Expiry int64
}

type Repository interface {
	Get(ctx context.Context, key string) (*Row, error)
	UpdateValue(ctx context.Context, key, value string) error
	Upsert(ctx context.Context, row Row) error
}
