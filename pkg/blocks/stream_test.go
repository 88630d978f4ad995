package blocks

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStream() Stream {
	return Stream{
		{ID: "b1", Type: "heading", Value: String("Przegląd instalacji PV")},
		{ID: "b2", Type: "paragraph", Value: String("<p>Sprawdzamy <strong>wszystko</strong>.</p>")},
		{Type: "pricing", Value: StructOf(map[string]Value{
			"title": String("Cennik"),
			"items": ListOf(
				StructOf(map[string]Value{"name": String("Przegląd"), "price": String("299 zł")}),
				StructOf(map[string]Value{"name": String("Termowizja"), "price": String("499 zł"), "description": String("dron")}),
			),
		})},
		{ID: "b4", Type: "counter", Value: Scalar(3)},
		{ID: "b5", Type: "heading", Value: String("Kontakt")},
	}
}

func TestStream_RoundTrip(t *testing.T) {
	reg := testRegistry(t)
	s := sampleStream()

	got, err := Decode(Encode(s), reg)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, []string{"heading", "paragraph", "pricing", "counter", "heading"}, got.Types())
}

func TestStream_JSONRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	s := sampleStream()

	data, err := json.Marshal(s)
	require.NoError(t, err)

	got, err := DecodeJSON(data, reg)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	again, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestStream_EncodeShape(t *testing.T) {
	tree := Encode(Stream{
		{ID: "x", Type: "heading", Value: String("A")},
		{Type: "heading", Value: String("B")},
	})
	require.Len(t, tree, 2)
	assert.Equal(t, map[string]any{"type": "heading", "value": "A", "id": "x"}, tree[0])
	assert.Equal(t, map[string]any{"type": "heading", "value": "B"}, tree[1])
}

func TestStream_OrderIsSignificant(t *testing.T) {
	reg := testRegistry(t)
	s := sampleStream()
	reversed := make(Stream, len(s))
	for i, e := range s {
		reversed[len(s)-1-i] = e
	}

	got, err := Decode(Encode(reversed), reg)
	require.NoError(t, err)
	assert.NotEqual(t, s, got)
	assert.Equal(t, reversed, got)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tree     any
		wantCode string
		wantPath string
	}{
		{
			name:     "unknown discriminator",
			tree:     []any{map[string]any{"type": "nonexistent", "value": map[string]any{}}},
			wantCode: "unknown_block",
			wantPath: "[0]",
		},
		{
			name:     "not an array",
			tree:     map[string]any{"type": "heading"},
			wantCode: "decode",
			wantPath: "",
		},
		{
			name:     "entry not an object",
			tree:     []any{"heading"},
			wantCode: "decode",
			wantPath: "[0]",
		},
		{
			name:     "missing type",
			tree:     []any{map[string]any{"value": "x"}},
			wantCode: "decode",
			wantPath: "[0].type",
		},
		{
			name:     "missing value",
			tree:     []any{map[string]any{"type": "heading"}},
			wantCode: "missing_field",
			wantPath: "[0].value",
		},
		{
			name:     "extra entry key",
			tree:     []any{map[string]any{"type": "heading", "value": "x", "style": "big"}},
			wantCode: "unexpected_field",
			wantPath: "[0].style",
		},
		{
			name:     "non string id",
			tree:     []any{map[string]any{"type": "heading", "value": "x", "id": 7}},
			wantCode: "decode",
			wantPath: "[0].id",
		},
		{
			name: "schema violation inside block",
			tree: []any{
				map[string]any{"type": "heading", "value": "ok"},
				map[string]any{"type": "pricing", "value": map[string]any{
					"title": "Cennik",
					"items": []any{map[string]any{"price": "1 zł"}},
				}},
			},
			wantCode: "missing_field",
			wantPath: "[1].items[0].name",
		},
		{
			name: "gallery entry without images",
			tree: []any{map[string]any{"type": "gallery", "value": map[string]any{
				"title": "Realizacje",
				"items": []any{
					map[string]any{"images": []any{"5f0c9b7e-2a41-4d8e-9c3b-7a6e1f2d4b90"}},
					map[string]any{},
					map[string]any{},
				},
			}}},
			wantCode: "missing_field",
			wantPath: "[0].items[1].images",
		},
	}

	reg := testRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode(tt.tree, reg)
			assert.Nil(t, s)
			ve, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.wantCode, ve.Code())
			assert.Equal(t, tt.wantPath, ve.FieldPath())
		})
	}
}

func TestDecode_UnknownBlockIsNotDecodeError(t *testing.T) {
	_, err := Decode([]any{map[string]any{"type": "nonexistent", "value": map[string]any{}}}, testRegistry(t))
	var unknown *UnknownBlockError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent", unknown.Name)
	var de *DecodeError
	assert.False(t, errors.As(err, &de))
}

func TestDecode_Empty(t *testing.T) {
	reg := testRegistry(t)

	s, err := Decode(nil, reg)
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = DecodeJSON([]byte("[]"), reg)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = DecodeJSON([]byte("{not json"), reg)
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestDecode_TypedMapSlice(t *testing.T) {
	s, err := Decode([]map[string]any{{"type": "heading", "value": "A"}}, testRegistry(t))
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, "A", s[0].Value.Text())
}

func TestValue_JSON(t *testing.T) {
	v := StructOf(map[string]Value{"name": String("Przegląd"), "items": ListOf(Scalar(1))})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Przegląd","items":[1]}`, string(data))

	var got Value
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, v, got)
}
