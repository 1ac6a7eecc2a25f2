package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface over the scalar types an attribute may hold.
// Only String, Int, Bool and Ref implement it.
// NO floats - fractional quantities are carried as strings so that
// fingerprints and equality stay deterministic.
type Value interface {
	recordValue() // Sealed - only these types implement it

	// String returns the canonical text form used by query equality.
	String() string
}

// String is a text attribute value.
type String string

func (String) recordValue() {}

func (s String) String() string { return string(s) }

// Int is an integer attribute value.
// Always int64, never float64.
type Int int64

func (Int) recordValue() {}

func (n Int) String() string { return strconv.FormatInt(int64(n), 10) }

// Bool is a boolean attribute value.
type Bool bool

func (Bool) recordValue() {}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Ref points at another record by identifier.
// The store never follows references; nested records are composed by
// external converters that write the referenced entries themselves.
type Ref string

func (Ref) recordValue() {}

func (r Ref) String() string { return string(r) }

// refKey is the single JSON object key used to encode a Ref.
const refKey = "$ref"

// ValueEqual reports whether two values have the same type and content.
// A nil value only equals another nil value.
func ValueEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// Attributes maps attribute keys to values.
// Use SortedKeys() for deterministic iteration.
type Attributes map[string]Value

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (a Attributes) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Equal reports whether both maps hold the same keys with equal values.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !ValueEqual(av, bv) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy. Values are immutable scalars so a shallow
// copy is a full copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
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

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler with sorted keys.
// NOTE: This is NOT canonical marshaling - use MarshalCanonical for hashing.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range a.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(a[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Attributes.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = make(Attributes, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", k, err)
		}
		(*a)[k] = val
	}
	return nil
}

// MarshalValue marshals a Value to JSON bytes.
// A Ref is encoded as {"$ref":"<id>"} so it survives a round trip.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Ref:
		return json.Marshal(map[string]string{refKey: string(val)})
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes a JSON scalar (or a {"$ref": ...} object) into a Value.
// Floats, null, arrays and other objects are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case '{':
		var obj map[string]string
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("object values must be {%q: \"<id>\"}: %w", refKey, err)
		}
		ref, ok := obj[refKey]
		if !ok || len(obj) != 1 {
			return nil, fmt.Errorf("object values must be {%q: \"<id>\"}", refKey)
		}
		return Ref(ref), nil

	case 'n':
		return nil, fmt.Errorf("null is not an attribute value")

	case '[':
		return nil, fmt.Errorf("arrays are not attribute values")

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not attribute values: %s", string(data))
		}
		return Int(i), nil
	}
}

// FromGo converts a plain Go value (as decoded from YAML or JSON into any)
// into a Value. Maps of the form {"$ref": "<id>"} become Refs.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not an attribute value")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not attribute values: %s", val)
		}
		return Int(n), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not attribute values: %v", val)
		}
		return Int(int64(val)), nil
	case map[string]any:
		ref, ok := val[refKey].(string)
		if !ok || len(val) != 1 {
			return nil, fmt.Errorf("object values must be {%q: \"<id>\"}", refKey)
		}
		return Ref(ref), nil
	default:
		return nil, fmt.Errorf("unsupported attribute type: %T", v)
	}
}

// AttributesFromGo converts a plain map into Attributes.
func AttributesFromGo(m map[string]any) (Attributes, error) {
	out := make(Attributes, len(m))
	for k, v := range m {
		val, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// ToGo converts a Value back into a plain Go value.
func ToGo(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Ref:
		return map[string]any{refKey: string(val)}
	default:
		return nil
	}
}
