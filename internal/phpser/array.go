// Package phpser reads and writes the PHP serialize() format that WordPress
// and WooCommerce use for sessions, options and post meta.
//
// PHP arrays are ordered maps, so they decode into *Array rather than a Go
// map; iteration order is preserved through a decode/encode round trip.
package phpser

import "strconv"

// Pair is one key/value entry of an Array.
type Pair struct {
	Key    string
	IntKey bool
	Value  any
}

// Array is an ordered PHP array. Objects decode into an Array with Class set.
type Array struct {
	Class string
	Pairs []Pair
}

// NewArray returns an empty array.
func NewArray() *Array {
	return &Array{}
}

func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Pairs)
}

func (a *Array) index(key string) int {
	if a == nil {
		return -1
	}
	for i, p := range a.Pairs {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (a *Array) Get(key string) (any, bool) {
	i := a.index(key)
	if i < 0 {
		return nil, false
	}
	return a.Pairs[i].Value, true
}

// Set replaces the value under key, or appends it when absent.
// Keys that PHP would treat as integers are encoded as integers.
func (a *Array) Set(key string, v any) {
	if i := a.index(key); i >= 0 {
		a.Pairs[i].Value = v
		return
	}
	a.Pairs = append(a.Pairs, Pair{Key: key, IntKey: isIntKey(key), Value: v})
}

// Append adds v under the next integer key, like $a[] = v.
func (a *Array) Append(v any) {
	next := int64(0)
	for _, p := range a.Pairs {
		if !p.IntKey {
			continue
		}
		n, _ := strconv.ParseInt(p.Key, 10, 64)
		if n >= next {
			next = n + 1
		}
	}
	a.Pairs = append(a.Pairs, Pair{Key: strconv.FormatInt(next, 10), IntKey: true, Value: v})
}

// Values returns the values in order.
func (a *Array) Values() []any {
	out := make([]any, 0, a.Len())
	if a == nil {
		return out
	}
	for _, p := range a.Pairs {
		out = append(out, p.Value)
	}
	return out
}

// Clone returns a deep copy; nested arrays are copied too.
func (a *Array) Clone() *Array {
	if a == nil {
		return nil
	}
	out := &Array{Class: a.Class, Pairs: make([]Pair, len(a.Pairs))}
	for i, p := range a.Pairs {
		if nested, ok := p.Value.(*Array); ok {
			p.Value = nested.Clone()
		}
		out.Pairs[i] = p
	}
	return out
}

// isIntKey mirrors PHP's rule for numeric string keys: a decimal integer
// without leading zeros or a plus sign that fits in int64.
func isIntKey(key string) bool {
	if key == "" || key == "-" || key == "-0" {
		return false
	}
	digits := key
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) > 1 && digits[0] == '0' {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(key, 10, 64)
	return err == nil
}
