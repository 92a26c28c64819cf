// Package value implements the tagged dynamic value the executor uses in
// place of raw interface{} for node outputs, rendered inputs, and branch
// operands, per spec.md's "Dynamic typing of outputs" design note.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the dynamic shape a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a tagged union over the primitive shapes a rendered parameter,
// node output field, or branch operand can take. Only one of the typed
// fields is meaningful, selected by Kind.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

func Null() Value                  { return Value{kind: KindNull} }
func String(s string) Value        { return Value{kind: KindString, str: s} }
func Number(n float64) Value       { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func List(items []Value) Value     { return Value{kind: KindList, list: items} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the numeric payload and whether v is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the bool payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsList returns the list payload and whether v is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the map payload and whether v is a map.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Field looks up a key when v is a map; ok is false otherwise or when the
// key is absent.
func (v Value) Field(key string) (Value, bool) {
	m, ok := v.AsMap()
	if !ok {
		return Value{}, false
	}
	val, ok := m[key]
	return val, ok
}

// FromAny converts a decoded-JSON interface{} (as produced by
// encoding/json's default unmarshaling into interface{}) into a Value tree.
// This is the boundary normalization point: everywhere else in the module
// works against Value, never against interface{}.
func FromAny(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(x)
	case float64:
		return Number(x)
	case int:
		return Number(float64(x))
	case bool:
		return Bool(x)
	case []interface{}:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromAny(item)
		}
		return List(items)
	case map[string]interface{}:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			m[k] = FromAny(item)
		}
		return Map(m)
	case []Value:
		return List(x)
	case map[string]Value:
		return Map(x)
	case Value:
		return x
	default:
		// Fall back to the textual representation for any type we don't
		// recognize (e.g. json.Number, custom structs from tests).
		return String(fmt.Sprintf("%v", x))
	}
}

// ToAny converts a Value tree back into plain interface{}, for JSON
// marshaling at the module boundary.
func (v Value) ToAny() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, item := range v.m {
			out[k] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

// String renders v the way the template renderer stringifies a resolved
// value: natural representation for primitives, compact deterministic JSON
// for maps/lists.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList, KindMap:
		b, err := json.Marshal(v.stableAny())
		if err != nil {
			return fmt.Sprintf("%v", v.ToAny())
		}
		return string(b)
	default:
		return ""
	}
}

// stableAny is like ToAny but sorts map keys so that the JSON
// stringification of a map Value is deterministic across calls, since Go's
// encoding/json already sorts map[string]interface{} keys — this exists to
// document that guarantee rather than to add new behavior.
func (v Value) stableAny() interface{} {
	switch v.kind {
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(v.m))
		for _, k := range keys {
			out[k] = v.m[k].stableAny()
		}
		return out
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.stableAny()
		}
		return out
	default:
		return v.ToAny()
	}
}

// MarshalJSON lets a Value be embedded directly in JSON output (used when
// serializing execution events and by render.ExtractField's JSON projection).
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes v from arbitrary JSON via the standard
// interface{} decode path, then normalizes through FromAny.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
