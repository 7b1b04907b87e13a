// Package auth verifies WooCommerce REST API key/secret pairs.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"woocart-bridge/internal/domain"
)

const (
	// HashWooCommerce is wc_api_hash: HMAC-SHA256 keyed with "wc-api".
	HashWooCommerce = "wc-api"
	// HashSHA256 is the plain digest used when no platform hasher exists.
	HashSHA256 = "sha256"
)

type credentialRepo interface {
	GetByConsumerKey(ctx context.Context, hashedKey string) (*domain.APICredential, error)
	TouchLastAccess(ctx context.Context, keyID int64, at time.Time) error
}

// Identity is the caller bound to a request after verification.
type Identity struct {
	UserID     int64
	KeyID      int64
	Permission domain.Permission
}

type Verifier struct {
	repo     credentialRepo
	hashMode string
	logger   *log.Logger
	now      func() time.Time
}

func NewVerifier(repo credentialRepo, hashMode string, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if hashMode != HashSHA256 {
		hashMode = HashWooCommerce
	}
	return &Verifier{repo: repo, hashMode: hashMode, logger: logger, now: time.Now}
}

// ExtractCredentials reads consumer_key/consumer_secret from the query
// string, falling back to HTTP Basic auth unless both query values are set.
func ExtractCredentials(r *http.Request) (key, secret string) {
	q := r.URL.Query()
	key, secret = q.Get("consumer_key"), q.Get("consumer_secret")
	if key != "" && secret != "" {
		return key, secret
	}
	if user, pass, ok := r.BasicAuth(); ok {
		return user, pass
	}
	return "", ""
}

// HashKey hashes a consumer key the way it is stored in the key table.
func HashKey(mode, key string) string {
	if mode == HashSHA256 {
		sum := sha256.Sum256([]byte(key))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, []byte(HashWooCommerce))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates r and checks that the key scope allows r.Method.
// It fails closed: any missing or mismatched value is ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, r *http.Request) (Identity, error) {
	key, secret := ExtractCredentials(r)
	key, secret = strings.TrimSpace(key), strings.TrimSpace(secret)
	if key == "" || secret == "" {
		return Identity{}, domain.Errorf(domain.ErrUnauthorized, "missing api credentials")
	}

	cred, err := v.repo.GetByConsumerKey(ctx, HashKey(v.hashMode, key))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Identity{}, domain.Errorf(domain.ErrUnauthorized, "invalid api credentials")
		}
		return Identity{}, err
	}
	if subtle.ConstantTimeCompare([]byte(cred.Secret), []byte(secret)) != 1 {
		v.logger.Printf("auth: secret mismatch key_id=%d", cred.KeyID)
		return Identity{}, domain.Errorf(domain.ErrUnauthorized, "invalid api credentials")
	}
	if !cred.Permission.Allows(r.Method) {
		v.logger.Printf("auth: scope denied key_id=%d permission=%s method=%s", cred.KeyID, cred.Permission, r.Method)
		return Identity{}, domain.Errorf(domain.ErrForbidden, "api key does not have %s access", scopeFor(r.Method))
	}

	if err := v.repo.TouchLastAccess(ctx, cred.KeyID, v.now().UTC()); err != nil {
		v.logger.Printf("auth: touch last access key_id=%d error=%v", cred.KeyID, err)
	}
	return Identity{UserID: cred.UserID, KeyID: cred.KeyID, Permission: cred.Permission}, nil
}

func scopeFor(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return "read"
	}
	return "write"
}

type identityKey struct{}

// WithIdentity stores id in ctx for downstream handlers.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity bound by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
