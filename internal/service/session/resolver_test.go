package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const prefix = "wp_woocommerce_session_"

func TestResolveTokenTakesFirstSegment(t *testing.T) {
	header := "theme=dark; wp_woocommerce_session_abc123=T%7C%7C1718000000%7C%7C1717990000%7C%7Cc0ffee; other=1"
	assert.Equal(t, "T", ResolveToken(header, prefix))

	header = "wp_woocommerce_session_abc123=T||e1||e2||c"
	assert.Equal(t, "T", ResolveToken(header, prefix))
}

func TestResolveTokenUsesFirstMatchingCookie(t *testing.T) {
	header := "wp_woocommerce_session_a=first||1||2||x; wp_woocommerce_session_b=second||1||2||x"
	assert.Equal(t, "first", ResolveToken(header, prefix))
}

func TestResolveTokenToleratesMalformedHeaders(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		";;;":                                "",
		"garbage":                            "",
		"=novalue; wp_woocommerce_session_x": "",
		"a=%zz; wp_woocommerce_session_x=T":  "T",
		"wp_woocommerce_session_x=":          "",
		"  wp_woocommerce_session_x = tok  ": "tok",
	}
	for header, want := range cases {
		assert.Equal(t, want, ResolveToken(header, prefix), header)
	}
}

func TestParseCookiesKeepsOrderAndSplitsOnFirstEquals(t *testing.T) {
	got := ParseCookies("a=1; b=x=y; c")
	assert.Equal(t, []Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "x=y"}}, got)
}

func TestRedirectURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:3001?store=shop.example.com&cart=T",
		RedirectURL("http://localhost:3001", "shop.example.com", "T"))
	assert.Equal(t,
		"https://front.example.com/?x=1&store=shop&cart=a+b",
		RedirectURL("https://front.example.com/?x=1", "shop", "a b"))
}
