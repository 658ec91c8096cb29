package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the parameter value kinds a step contract
// can describe. Only Null, Int, Float, Str, Bool, List and Dict implement it,
// so type switches over Value are exhaustive.
type Value interface {
	paramValue() // Sealed - only these types implement it
}

// Null represents an explicit JSON null (an unset optional parameter).
type Null struct{}

func (Null) paramValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Int is an integral number. JSON numbers without a fraction or exponent
// decode to Int.
type Int int64

func (Int) paramValue() {}

// Float is a non-integral number, or any number spelled with a fraction
// or exponent in the source document.
type Float float64

func (Float) paramValue() {}

// Str is a string value.
type Str string

func (Str) paramValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) paramValue() {}

// List is an ordered list of values.
type List []Value

func (List) paramValue() {}

// Dict is a string-keyed map of values.
// Use SortedKeys() for deterministic iteration.
type Dict map[string]Value

func (Dict) paramValue() {}

// Kind names the dynamic kind of v as used in diagnostics.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "absent"
	case Null:
		return "null"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Dict:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Number returns the numeric value of an Int or Float.
func Number(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// Truthy reports whether v counts as "set" when another parameter depends
// on it: null, false, zero, empty strings and empty collections are not.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Int:
		return val != 0
	case Float:
		return val != 0
	case Str:
		return val != ""
	case Bool:
		return bool(val)
	case List:
		return len(val) > 0
	case Dict:
		return len(val) > 0
	default:
		return false
	}
}

// Equal reports whether a and b have the same canonical JSON encoding.
// Numerically equal Int and Float values compare equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := MarshalCanonical(a)
	bb, errB := MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Strings returns the elements of a List of Str values.
// The second result is false if v is not a list of strings.
func Strings(v Value) ([]string, bool) {
	list, ok := v.(List)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		s, ok := elem.(Str)
		if !ok {
			return nil, false
		}
		out = append(out, string(s))
	}
	return out, true
}

// StrList builds a List of Str values.
func StrList(items ...string) List {
	list := make(List, len(items))
	for i, s := range items {
		list[i] = Str(s)
	}
	return list
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (d Dict) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
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

// MarshalJSON implements json.Marshaler for Dict with sorted keys.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func (d Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := MarshalValue(d[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for List.
func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON keeps integral floats distinguishable from ints on round trip.
func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("non-finite float %v", x)
	}
	b, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, '.', '0')
	}
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler for Dict.
func (d *Dict) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	dict, ok := v.(Dict)
	if !ok {
		return fmt.Errorf("expected object, got %s", Kind(v))
	}
	*d = dict
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	list, ok := v.(List)
	if !ok {
		return fmt.Errorf("expected array, got %s", Kind(v))
	}
	*l = list
	return nil
}

// MarshalValue marshals a Value to JSON bytes.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return val.MarshalJSON()
	case Str:
		return json.Marshal(string(val))
	case Bool:
		return json.Marshal(bool(val))
	case List:
		return val.MarshalJSON()
	case Dict:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes JSON into a Value, keeping integers distinct
// from floats.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// FromAny converts decoded JSON or YAML data into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return Str(val), nil
	case json.Number:
		return numberFromString(string(val))
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite number %v", val)
		}
		return Float(val), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case []string:
		return StrList(val...), nil
	case map[string]any:
		dict := make(Dict, len(val))
		for k, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("dict[%q]: %w", k, err)
			}
			dict[k] = item
		}
		return dict, nil
	case map[any]any:
		dict := make(Dict, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", k)
			}
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("dict[%q]: %w", key, err)
			}
			dict[key] = item
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func numberFromString(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := json.Number(s).Int64(); err == nil {
			return Int(i), nil
		}
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// MustValue is like FromAny but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustValue(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}
