package phpser

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every decoding failure.
var ErrSyntax = errors.New("phpser: syntax error")

type decoder struct {
	data []byte
	pos  int
}

// Unmarshal decodes one serialized value. Arrays and objects come back as
// *Array, integers as int64, floats as float64, strings as string, booleans
// as bool and N; as nil.
func Unmarshal(data []byte) (any, error) {
	d := &decoder{data: data}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, d.errorf("trailing data")
	}
	return v, nil
}

// IsSerialized reports whether s looks like serialize() output, following
// WordPress is_serialized().
func IsSerialized(s string) bool {
	s = strings.TrimSpace(s)
	if s == "N;" {
		return true
	}
	if len(s) < 4 || s[1] != ':' {
		return false
	}
	last := s[len(s)-1]
	switch s[0] {
	case 's':
		return last == ';' && s[len(s)-2] == '"'
	case 'a', 'O':
		return last == '}'
	case 'b', 'i', 'd':
		return last == ';'
	}
	return false
}

// MaybeUnserialize decodes s when it is serialized and returns it unchanged
// otherwise, including when decoding fails.
func MaybeUnserialize(s string) any {
	if !IsSerialized(s) {
		return s
	}
	v, err := Unmarshal([]byte(strings.TrimSpace(s)))
	if err != nil {
		return s
	}
	return v
}

func (d *decoder) errorf(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, msg, d.pos)
}

func (d *decoder) expect(b byte) error {
	if d.pos >= len(d.data) || d.data[d.pos] != b {
		return d.errorf(fmt.Sprintf("expected %q", b))
	}
	d.pos++
	return nil
}

func (d *decoder) until(b byte) (string, error) {
	i := bytes.IndexByte(d.data[d.pos:], b)
	if i < 0 {
		return "", d.errorf(fmt.Sprintf("missing %q", b))
	}
	s := string(d.data[d.pos : d.pos+i])
	d.pos += i + 1
	return s, nil
}

func (d *decoder) intUntil(b byte) (int64, error) {
	s, err := d.until(b)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, d.errorf("bad integer " + strconv.Quote(s))
	}
	return n, nil
}

func (d *decoder) value() (any, error) {
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input")
	}
	tag := d.data[d.pos]
	d.pos++
	if tag == 'N' {
		if err := d.expect(';'); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := d.expect(':'); err != nil {
		return nil, err
	}
	switch tag {
	case 'b':
		n, err := d.intUntil(';')
		if err != nil {
			return nil, err
		}
		return n != 0, nil
	case 'i':
		return d.intUntil(';')
	case 'd':
		s, err := d.until(';')
		if err != nil {
			return nil, err
		}
		return parseFloat(s, d)
	case 's':
		return d.str(';')
	case 'a':
		return d.array("")
	case 'O':
		class, err := d.str(':')
		if err != nil {
			return nil, err
		}
		return d.array(class)
	}
	return nil, d.errorf(fmt.Sprintf("unknown type %q", tag))
}

// str reads `<len>:"<bytes>"` followed by the terminator.
func (d *decoder) str(term byte) (string, error) {
	n, err := d.intUntil(':')
	if err != nil {
		return "", err
	}
	if err := d.expect('"'); err != nil {
		return "", err
	}
	if n < 0 || d.pos+int(n) > len(d.data) {
		return "", d.errorf("string length out of range")
	}
	s := string(d.data[d.pos : d.pos+int(n)])
	d.pos += int(n)
	if err := d.expect('"'); err != nil {
		return "", err
	}
	if err := d.expect(term); err != nil {
		return "", err
	}
	return s, nil
}

func (d *decoder) array(class string) (*Array, error) {
	n, err := d.intUntil(':')
	if err != nil {
		return nil, err
	}
	if err := d.expect('{'); err != nil {
		return nil, err
	}
	// Every pair takes more than one byte, so a count above the remaining
	// input can never be satisfied.
	if n < 0 || n > int64(len(d.data)-d.pos) {
		return nil, d.errorf("array length out of range")
	}
	out := &Array{Class: class, Pairs: make([]Pair, 0, n)}
	for i := int64(0); i < n; i++ {
		k, err := d.value()
		if err != nil {
			return nil, err
		}
		var pair Pair
		switch key := k.(type) {
		case int64:
			pair.Key = strconv.FormatInt(key, 10)
			pair.IntKey = true
		case string:
			pair.Key = key
		default:
			return nil, d.errorf("array key must be int or string")
		}
		if pair.Value, err = d.value(); err != nil {
			return nil, err
		}
		out.Pairs = append(out.Pairs, pair)
	}
	if err := d.expect('}'); err != nil {
		return nil, err
	}
	return out, nil
}

func parseFloat(s string, d *decoder) (float64, error) {
	switch s {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NAN":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, d.errorf("bad float " + strconv.Quote(s))
	}
	return f, nil
}
