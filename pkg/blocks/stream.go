package blocks

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one block in a stream.
type Entry struct {
	// ID is a stable identifier for the block within its page. It is
	// optional on input and assigned by the page service on save.
	ID    string
	Type  string
	Value Value
}

// Stream is an ordered sequence of blocks forming one page field.
type Stream []Entry

// Types returns the discriminators of the stream in order.
func (s Stream) Types() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Type
	}
	return out
}

// Encode flattens a stream into its portable form: an array of
// {"type", "value", "id"} objects. The id key is omitted when empty.
func Encode(s Stream) []any {
	out := make([]any, len(s))
	for i, e := range s {
		m := map[string]any{
			"type":  e.Type,
			"value": e.Value.Portable(),
		}
		if e.ID != "" {
			m["id"] = e.ID
		}
		out[i] = m
	}
	return out
}

// MarshalJSON encodes the stream's portable form.
func (s Stream) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(s))
}

// Decode parses a portable tree into a stream, resolving every entry's type
// against reg and validating its value. Decoding fails on the first bad entry;
// a nil tree decodes to an empty stream.
func Decode(tree any, reg *Registry) (Stream, error) {
	var raw []any
	switch t := tree.(type) {
	case nil:
		return Stream{}, nil
	case []any:
		raw = t
	case []map[string]any:
		raw = make([]any, len(t))
		for i, m := range t {
			raw[i] = m
		}
	default:
		return nil, &DecodeError{Expected: "array of blocks", Got: portableName(tree)}
	}

	out := make(Stream, 0, len(raw))
	for i, item := range raw {
		entry, err := decodeEntry(item, Path("").Index(i), reg)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// DecodeJSON decodes a JSON document holding a stream's portable form.
func DecodeJSON(data []byte, reg *Registry) (Stream, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, &DecodeError{Expected: "JSON array of blocks", Got: fmt.Sprintf("invalid JSON (%v)", err)}
	}
	return Decode(tree, reg)
}

func decodeEntry(item any, path Path, reg *Registry) (Entry, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Entry{}, &DecodeError{Path: path.String(), Expected: "block object", Got: portableName(item)}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case "type", "value", "id":
		default:
			return Entry{}, &UnexpectedFieldError{Path: path.Field(k).String()}
		}
	}

	name, ok := m["type"].(string)
	if !ok || name == "" {
		return Entry{}, &DecodeError{Path: path.Field("type").String(), Expected: "block type name", Got: portableName(m["type"])}
	}
	var id string
	if raw, present := m["id"]; present && raw != nil {
		if id, ok = raw.(string); !ok {
			return Entry{}, &DecodeError{Path: path.Field("id").String(), Expected: "string", Got: portableName(raw)}
		}
	}

	bt, err := reg.Resolve(name)
	if err != nil {
		return Entry{}, &UnknownBlockError{Path: path.String(), Name: name}
	}
	rawValue, present := m["value"]
	if !present {
		return Entry{}, &MissingFieldError{Path: path.Field("value").String()}
	}
	v := FromPortable(rawValue)
	if err := bt.validate(v, path); err != nil {
		return Entry{}, err
	}
	return Entry{ID: id, Type: name, Value: v}, nil
}

func portableName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return primitiveName(normalizeScalar(v))
	}
}
