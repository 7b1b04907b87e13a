package phpser

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Marshal encodes v. Supported inputs are nil, bool, the integer and float
// kinds, string, *Array, []any, []string and map[string]any (keys sorted).
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("N;")
	case bool:
		if t {
			buf.WriteString("b:1;")
		} else {
			buf.WriteString("b:0;")
		}
	case int:
		writeInt(buf, int64(t))
	case int32:
		writeInt(buf, int64(t))
	case int64:
		writeInt(buf, t)
	case float32:
		writeFloat(buf, float64(t))
	case float64:
		writeFloat(buf, t)
	case string:
		writeString(buf, t)
		buf.WriteByte(';')
	case *Array:
		return writeArray(buf, t)
	case []any:
		arr := NewArray()
		for _, item := range t {
			arr.Append(item)
		}
		return writeArray(buf, arr)
	case []string:
		arr := NewArray()
		for _, item := range t {
			arr.Append(item)
		}
		return writeArray(buf, arr)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		arr := NewArray()
		for _, k := range keys {
			arr.Set(k, t[k])
		}
		return writeArray(buf, arr)
	default:
		return fmt.Errorf("phpser: unsupported type %T", v)
	}
	return nil
}

func writeInt(buf *bytes.Buffer, n int64) {
	buf.WriteString("i:")
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteByte(';')
}

func writeFloat(buf *bytes.Buffer, f float64) {
	buf.WriteString("d:")
	switch {
	case math.IsInf(f, 1):
		buf.WriteString("INF")
	case math.IsInf(f, -1):
		buf.WriteString("-INF")
	case math.IsNaN(f):
		buf.WriteString("NAN")
	default:
		buf.WriteString(strconv.FormatFloat(f, 'G', -1, 64))
	}
	buf.WriteByte(';')
}

// writeString writes s:<len>:"<s>" without the trailing separator.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString("s:")
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteString(`:"`)
	buf.WriteString(s)
	buf.WriteByte('"')
}

func writeArray(buf *bytes.Buffer, a *Array) error {
	if a == nil {
		a = NewArray()
	}
	if a.Class != "" {
		buf.WriteString("O:")
		buf.WriteString(strconv.Itoa(len(a.Class)))
		buf.WriteString(`:"`)
		buf.WriteString(a.Class)
		buf.WriteString(`":`)
	} else {
		buf.WriteString("a:")
	}
	buf.WriteString(strconv.Itoa(len(a.Pairs)))
	buf.WriteString(":{")
	for _, p := range a.Pairs {
		if p.IntKey {
			n, err := strconv.ParseInt(p.Key, 10, 64)
			if err != nil {
				return fmt.Errorf("phpser: bad integer key %q", p.Key)
			}
			writeInt(buf, n)
		} else {
			writeString(buf, p.Key)
			buf.WriteByte(';')
		}
		if err := encode(buf, p.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
