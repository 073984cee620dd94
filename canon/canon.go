// Package canon implements the canonical JSON encoding used for hashing
// and signing across the trust-registry node: lexicographically sorted
// object keys at every depth, minimal separators, UTF-8 without HTML
// escaping, and ISO-8601 UTC timestamps with a "Z" suffix.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Time formats t as the canonical UTC timestamp the rest of the node
// expects: microsecond precision, "Z" suffix, no offset.
func Time(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}

// NowUTC returns the current time rounded to microsecond precision,
// matching the resolution Time renders.
func NowUTC() time.Time {
	return time.Now().UTC().Round(time.Microsecond)
}

// Marshal encodes v (already a json.Marshal-able Go value, typically a
// map[string]any or a struct with json tags) to its canonical byte form.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Canonicalize(raw)
}

// Canonicalize re-encodes an arbitrary JSON byte string into canonical
// form: sorted keys, tight separators, no HTML escaping. Numbers are
// decoded as json.Number and re-rendered: integer literals as integers,
// every other number in the shortest 'g' form of its float64 value, so
// "5.0" encodes as 5 and "1e2" as 100, and integers never grow a
// spurious trailing ".0".
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canon: invalid JSON: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return encodeNumber(buf, val)
	case float64:
		return encodeNumber(buf, json.Number(strconv.FormatFloat(val, 'g', -1, 64)))
	case string:
		encodeString(buf, val)
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canon: unsupported type %T", v)
	}
}

func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canon: invalid number %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("canon: non-finite number %q", n)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// encodeString writes s as a JSON string literal without HTML escaping,
// passing UTF-8 bytes through untouched.
func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
