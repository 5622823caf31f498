package snap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// Value is a sealed interface over the canonical snapshot types.
// Only String, Int, Float, Bool, Array, and Object implement it.
// There is no null: absent inputs are omitted from snapshots entirely.
type Value interface {
	value() // sealed
}

// String is a string snapshot value. NFC normalization happens at the
// serialization boundary, not at construction.
type String string

func (String) value() {}

// Int is an integer snapshot value. Always int64.
type Int int64

func (Int) value() {}

// Float is a finite float64 snapshot value.
//
// Floats are serialized in their shortest round-trip decimal form, so
// equal float64 values always produce identical canonical bytes. NaN and
// infinities have no canonical form and are rejected at serialization.
type Float float64

func (Float) value() {}

// Bool is a boolean snapshot value.
type Bool bool

func (Bool) value() {}

// Array is an ordered sequence of snapshot values.
type Array []Value

func (Array) value() {}

// Object maps string keys to snapshot values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// TimeString renders a timestamp as an RFC 3339 string in UTC.
// Timestamps that participate in snapshots must go through this helper
// so the same instant always canonicalizes to the same bytes.
func TimeString(t time.Time) String {
	return String(t.UTC().Format(time.RFC3339))
}

// SortedKeys returns the object's keys in RFC 8785 canonical order,
// i.e. sorted by UTF-16 code units. Go's sort.Strings compares UTF-8
// bytes and produces a DIFFERENT order for keys outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units as required by
// RFC 8785. unicode/utf16.Encode handles surrogate pairs correctly.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// MarshalJSON implements json.Marshaler for Object.
// Output is the canonical form, so stored and displayed snapshots are
// byte-identical to what was hashed.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := ParseValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (arr *Array) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*arr = make(Array, len(raw))
	for i, v := range raw {
		val, err := ParseValue(v)
		if err != nil {
			return fmt.Errorf("array index %d: %w", i, err)
		}
		(*arr)[i] = val
	}
	return nil
}

// ParseValue decodes JSON into a snapshot Value.
// null is rejected. Numbers parse as Int when they carry no fraction or
// exponent, otherwise as Float. Integers beyond int64 range are rejected
// rather than silently converted to floats.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return FromGo(raw)
}

// FromGo converts a decoded Go value (as produced by encoding/json or
// yaml.v3) into a snapshot Value. Rejects null and non-finite floats.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in snapshots: omit absent inputs instead")
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case json.Number:
		return numberValue(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			sv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = sv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			sv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = sv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot type: %T", v)
	}
}

// numberValue converts a json.Number, preferring Int for integral text.
func numberValue(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("integer out of int64 range: %s", s)
		}
		return Int(i), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}
