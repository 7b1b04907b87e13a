package domain

import (
	"net/http"
	"strings"
	"time"
)

// Permission is the scope stored with an API key.
type Permission string

const (
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionReadWrite Permission = "read_write"
)

// Allows reports whether a credential with this permission may issue method.
// GET and HEAD need read access; every other method needs write access.
func (p Permission) Allows(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return p == PermissionRead || p == PermissionReadWrite
	default:
		return p == PermissionWrite || p == PermissionReadWrite
	}
}

// APICredential is a row of the WooCommerce API key table.
type APICredential struct {
	KeyID        int64
	UserID       int64
	Description  string
	Permission   Permission
	HashedKey    string
	Secret       string
	TruncatedKey string
	LastAccess   *time.Time
}
