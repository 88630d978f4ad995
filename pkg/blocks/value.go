package blocks

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind is the shape of a block type and of the values it accepts.
type Kind int

// Block kinds.
const (
	KindScalar Kind = iota
	KindStruct
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindStruct:
		return "struct"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a tagged union holding a scalar, a struct or a list.
//
// Scalars hold JSON primitives only: string, float64, bool or nil. Use the
// constructors rather than composite literals so that values compare equal
// after a round trip through the portable form.
type Value struct {
	Kind   Kind
	Scalar any
	Fields map[string]Value
	Items  []Value
}

// Scalar wraps a primitive. Integer types are widened to float64 so the
// value matches what a JSON decoder produces.
func Scalar(v any) Value {
	return Value{Kind: KindScalar, Scalar: normalizeScalar(v)}
}

// String is shorthand for Scalar(s).
func String(s string) Value {
	return Scalar(s)
}

// StructOf builds a struct value from the given fields.
func StructOf(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Value{Kind: KindStruct, Fields: m}
}

// ListOf builds a list value. A list with no items is empty, never nil.
func ListOf(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{Kind: KindList, Items: out}
}

// Field returns the named struct field and whether it is present.
func (v Value) Field(name string) (Value, bool) {
	if v.Kind != KindStruct {
		return Value{}, false
	}
	f, ok := v.Fields[name]
	return f, ok
}

// Text returns the scalar as a string, or "" for anything else.
func (v Value) Text() string {
	if v.Kind != KindScalar {
		return ""
	}
	s, _ := v.Scalar.(string)
	return s
}

// Portable converts the value to its JSON-compatible form.
func (v Value) Portable() any {
	switch v.Kind {
	case KindStruct:
		m := make(map[string]any, len(v.Fields))
		for k, f := range v.Fields {
			m[k] = f.Portable()
		}
		return m
	case KindList:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = item.Portable()
		}
		return items
	default:
		return v.Scalar
	}
}

// MarshalJSON encodes the portable form of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Portable())
}

// UnmarshalJSON decodes any JSON document into an unchecked value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	*v = FromPortable(tree)
	return nil
}

// FromPortable converts a JSON-compatible tree to a Value without any schema:
// objects become structs, arrays become lists and everything else a scalar.
// Shape checks against a BlockType happen in Validate.
func FromPortable(tree any) Value {
	switch t := tree.(type) {
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, f := range t {
			fields[k] = FromPortable(f)
		}
		return Value{Kind: KindStruct, Fields: fields}
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromPortable(item)
		}
		return Value{Kind: KindList, Items: items}
	default:
		return Scalar(t)
	}
}

// sortedKeys returns the field names of a struct value in lexical order.
func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	default:
		return v
	}
}

// primitiveName describes a scalar's JSON type for error messages.
func primitiveName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
