package db

import "testing"

func TestNewTablesQuotesPrefix(t *testing.T) {
	tables := NewTables("wp_")
	if tables.Sessions != `"wp_woocommerce_sessions"` {
		t.Fatalf("unexpected sessions table %s", tables.Sessions)
	}
	if tables.APIKeys != `"wp_woocommerce_api_keys"` {
		t.Fatalf("unexpected api keys table %s", tables.APIKeys)
	}

	odd := NewTables(`x"y_`)
	if odd.Posts != `"x""y_posts"` {
		t.Fatalf("expected embedded quote to be escaped, got %s", odd.Posts)
	}
}
