package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindString
	KindFloat
	KindTime
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// tag is the one-letter prefix used in canonical keys
func (k Kind) tag() byte {
	switch k {
	case KindInt:
		return 'i'
	case KindString:
		return 's'
	case KindFloat:
		return 'f'
	case KindTime:
		return 't'
	default:
		return '?'
	}
}

// Value is a scalar property value. It is comparable with == and usable
// as a map key: times are held in UTC without a monotonic reading.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Int returns an integer value
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String returns a string value
func String(v string) Value { return Value{kind: KindString, s: v} }

// Float returns a floating point value
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Time returns a timestamp value, converted to UTC
func Time(v time.Time) Value { return Value{kind: KindTime, t: v.UTC().Round(0)} }

// FromAny converts a native Go scalar into a Value.
// Accepted: Value, signed and unsigned integers, floats, string,
// time.Time and json.Number.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return Time(x), nil
	case *time.Time:
		if x == nil {
			return Value{}, fmt.Errorf("nil time")
		}
		return Time(*x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return Float(f), nil
	case nil:
		return Value{}, fmt.Errorf("nil value")
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustValue is FromAny for literals known to be valid; it panics otherwise
func MustValue(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns the integer held by v
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsString returns the string held by v
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsFloat returns the float held by v
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsTime returns the timestamp held by v
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// Interface returns the native Go representation, suitable as a driver
// parameter: int64, string, float64 or time.Time.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindFloat:
		return v.f
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Key returns the canonical, type-tagged encoding of v. Two values have the
// same key if and only if they are equal.
func (v Value) Key() string {
	var b strings.Builder
	b.WriteByte(v.kind.tag())
	b.WriteByte(':')
	switch v.kind {
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindString:
		b.WriteString(v.s)
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindTime:
		b.WriteString(v.t.Format(time.RFC3339Nano))
	}
	return b.String()
}

// ParseKey decodes a string produced by Key
func ParseKey(key string) (Value, error) {
	if len(key) < 2 || key[1] != ':' {
		return Value{}, fmt.Errorf("malformed value key %q", key)
	}
	body := key[2:]
	switch key[0] {
	case 'i':
		i, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("malformed int key %q: %w", key, err)
		}
		return Int(i), nil
	case 's':
		return String(body), nil
	case 'f':
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return Value{}, fmt.Errorf("malformed float key %q: %w", key, err)
		}
		return Float(f), nil
	case 't':
		t, err := time.Parse(time.RFC3339Nano, body)
		if err != nil {
			return Value{}, fmt.Errorf("malformed time key %q: %w", key, err)
		}
		return Time(t), nil
	default:
		return Value{}, fmt.Errorf("unknown value tag in key %q", key)
	}
}

// String renders v for logs and error messages
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return strconv.Quote(v.s)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes v as its native JSON form
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
