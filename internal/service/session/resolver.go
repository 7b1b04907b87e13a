package session

import (
	"net/url"
	"strings"
)

// Cookie is one name/value pair from a Cookie header.
type Cookie struct {
	Name  string
	Value string
}

// ParseCookies splits a Cookie header on ';' and then on the first '='.
// Values are URL-decoded. Pairs without '=' or with an empty name are
// skipped, and a value that fails to decode is kept as sent.
func ParseCookies(header string) []Cookie {
	var out []Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		out = append(out, Cookie{Name: name, Value: value})
	}
	return out
}

// ResolveToken returns the session token carried by the first cookie whose
// name starts with prefix. WooCommerce stores the cookie as
// token||expiration||expiring||hash; only the token is returned.
func ResolveToken(header, prefix string) string {
	for _, c := range ParseCookies(header) {
		if !strings.HasPrefix(c.Name, prefix) {
			continue
		}
		token, _, _ := strings.Cut(c.Value, "||")
		return token
	}
	return ""
}

// RedirectURL builds the external checkout address for a cart as
// base?store=<host>&cart=<token>.
func RedirectURL(base, host, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "store=" + url.QueryEscape(host) + "&cart=" + url.QueryEscape(token)
}
