package blocks

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_PricingItem(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantPath string
		wantCode string
	}{
		{
			name:  "valid",
			value: map[string]any{"name": "Przegląd", "price": "299 zł"},
		},
		{
			name:  "valid with optional description",
			value: map[string]any{"name": "Przegląd", "price": "299 zł", "description": "Do 10 kWp"},
		},
		{
			name:     "missing name",
			value:    map[string]any{"price": "299 zł"},
			wantPath: "name",
			wantCode: "missing_field",
		},
		{
			name:     "blank name",
			value:    map[string]any{"name": "  ", "price": "299 zł"},
			wantPath: "name",
			wantCode: "required",
		},
		{
			name:     "price too long",
			value:    map[string]any{"name": "Przegląd", "price": strings.Repeat("9", 51)},
			wantPath: "price",
			wantCode: "max_length",
		},
		{
			name:     "undeclared field",
			value:    map[string]any{"name": "Przegląd", "price": "299 zł", "vat": "23%"},
			wantPath: "vat",
			wantCode: "unexpected_field",
		},
		{
			name:     "missing field reported before undeclared field",
			value:    map[string]any{"price": "299 zł", "vat": "23%"},
			wantPath: "name",
			wantCode: "missing_field",
		},
		{
			name:     "number where text expected",
			value:    map[string]any{"name": "Przegląd", "price": 299},
			wantPath: "price",
			wantCode: "decode",
		},
		{
			name:     "list where struct expected",
			value:    []any{"Przegląd"},
			wantPath: "",
			wantCode: "decode",
		},
	}

	bt := pricingItem()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bt.Validate(FromPortable(tt.value))
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			ve, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.wantPath, ve.FieldPath())
			assert.Equal(t, tt.wantCode, ve.Code())
		})
	}
}

func TestValidate_FirstFailingListElement(t *testing.T) {
	v := FromPortable(map[string]any{
		"title": "Cennik",
		"items": []any{
			map[string]any{"name": "A", "price": "100 zł"},
			map[string]any{"name": "B", "price": "200 zł"},
			map[string]any{"name": "C", "price": strings.Repeat("x", 60)},
			map[string]any{"price": "400 zł"},
		},
	})

	err := pricingTable().Validate(v)
	var fce *FieldConstraintError
	require.ErrorAs(t, err, &fce)
	assert.Equal(t, "items[2].price", fce.Path)
	assert.Equal(t, "max_length", fce.Rule)
	assert.Equal(t, 50, fce.Limit)
}

func TestValidate_GalleryMissingImages(t *testing.T) {
	v := FromPortable(map[string]any{
		"title": "Realizacje",
		"items": []any{
			map[string]any{"images": []any{"5f0c9b7e-2a41-4d8e-9c3b-7a6e1f2d4b90"}},
			map[string]any{"caption": "brak zdjęć"},
			map[string]any{"images": []any{}},
		},
	})

	err := galleryBlock().Validate(v)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "items[1].images", missing.Path)
}

func TestValidate_ListConstraints(t *testing.T) {
	bt := List("images", Image("image"), MinItems(1), MaxItems(2))

	err := bt.Validate(ListOf())
	var fce *FieldConstraintError
	require.ErrorAs(t, err, &fce)
	assert.Equal(t, "required", fce.Rule)

	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	err = bt.Validate(ListOf(String(a), String(b), String(c)))
	require.ErrorAs(t, err, &fce)
	assert.Equal(t, "max_items", fce.Rule)

	assert.NoError(t, bt.Validate(ListOf(String(a))))
	assert.NoError(t, List("tags", Char("tag")).Validate(ListOf()))

	err = bt.Validate(String(a))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "list", de.Expected)
	assert.Equal(t, "string", de.Got)
}

func TestValidate_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		bt       *BlockType
		value    Value
		wantRule string
	}{
		{name: "email ok", bt: Email("email"), value: String("biuro@oze-inspekcje.pl")},
		{name: "email invalid", bt: Email("email"), value: String("not-an-email"), wantRule: "email"},
		{name: "email with display name", bt: Email("email"), value: String("Biuro <biuro@oze.pl>"), wantRule: "email"},
		{name: "email optional empty", bt: Email("email", Optional()), value: String("")},
		{name: "email required empty", bt: Email("email"), value: String(""), wantRule: "required"},
		{name: "url ok", bt: URL("map"), value: String("https://www.google.com/maps/embed?pb=1")},
		{name: "url wrong scheme", bt: URL("map"), value: String("ftp://example.com"), wantRule: "url"},
		{name: "url relative", bt: URL("map"), value: String("/kontakt"), wantRule: "url"},
		{name: "char keeps line breaks", bt: Char("title"), value: String("a\nb")},
		{name: "text multi line", bt: Text("body"), value: String("a\nb")},
		{name: "min length", bt: Char("nip", MinLength(10)), value: String("123"), wantRule: "min_length"},
		{name: "max length counts characters", bt: Char("name", MaxLength(4)), value: String("ąęść")},
		{name: "choice ok", bt: Choice("field_type", []string{"text", "email"}), value: String("email")},
		{name: "choice invalid", bt: Choice("field_type", []string{"text", "email"}), value: String("date"), wantRule: "choice"},
		{name: "number in range", bt: Number("n", Range(0, 10)), value: Scalar(5)},
		{name: "number below min", bt: Number("n", Range(0, 10)), value: Scalar(-1), wantRule: "min_value"},
		{name: "number above max", bt: Number("n", Range(0, 10)), value: Scalar(11), wantRule: "max_value"},
		{name: "number required nil", bt: Number("n"), value: Scalar(nil), wantRule: "required"},
		{name: "boolean false is a value", bt: Boolean("required"), value: Scalar(false)},
		{name: "optional image nil", bt: Image("hero", Optional()), value: Scalar(nil)},
		{name: "page link", bt: PageLink("cta"), value: String("0b8f3c1e-1d43-4b7e-9a57-3f1c8a5d2e10")},
		{name: "page link not an id", bt: PageLink("cta"), value: String("kontakt"), wantRule: "reference"},
		{name: "image id", bt: Image("hero"), value: String("5f0c9b7e-2a41-4d8e-9c3b-7a6e1f2d4b90")},
		{name: "image not an id", bt: Image("hero"), value: String("definitely not an image id"), wantRule: "reference"},
		{name: "image path", bt: Image("hero"), value: String("../../etc/passwd"), wantRule: "reference"},
		{name: "email list single", bt: EmailList("to"), value: String("biuro@oze.pl")},
		{name: "email list several", bt: EmailList("to"), value: String("biuro@oze.pl, serwis@oze.pl")},
		{name: "email list bad entry", bt: EmailList("to"), value: String("biuro@oze.pl, serwis"), wantRule: "email"},
		{name: "email list trailing comma", bt: EmailList("to"), value: String("biuro@oze.pl,"), wantRule: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bt.Validate(tt.value)
			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}
			var fce *FieldConstraintError
			require.ErrorAs(t, err, &fce)
			assert.Equal(t, tt.wantRule, fce.Rule)
		})
	}
}

func TestValidate_PrimitiveMismatch(t *testing.T) {
	tests := []struct {
		name  string
		bt    *BlockType
		value Value
		want  string
		got   string
	}{
		{name: "bool for text", bt: Char("title"), value: Scalar(true), want: "string", got: "boolean"},
		{name: "string for number", bt: Number("n"), value: String("5"), want: "number", got: "string"},
		{name: "struct for scalar", bt: Char("title"), value: StructOf(nil), want: "text", got: "struct"},
		{name: "list for struct", bt: pricingItem(), value: ListOf(), want: "struct", got: "list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var de *DecodeError
			require.ErrorAs(t, tt.bt.Validate(tt.value), &de)
			assert.Equal(t, tt.want, de.Expected)
			assert.Equal(t, tt.got, de.Got)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	bt := pricingTable()
	v := FromPortable(map[string]any{"title": "Cennik", "items": []any{map[string]any{"price": "1 zł"}}})

	first := bt.Validate(v)
	second := Validate(v, bt)
	require.Error(t, first)
	assert.Equal(t, first.Error(), second.Error())

	ok := FromPortable(map[string]any{"title": "Cennik", "items": []any{}})
	assert.NoError(t, bt.Validate(ok))
	assert.NoError(t, bt.Validate(ok))
}

func TestValidate_ErrorsAreTyped(t *testing.T) {
	err := pricingItem().Validate(FromPortable(map[string]any{"price": "1 zł"}))
	var ve ValidationError
	assert.True(t, errors.As(err, &ve))
	var missing *MissingFieldError
	assert.True(t, errors.As(err, &missing))
}

func TestValidate_Slug(t *testing.T) {
	bt := Slug("slug")
	assert.NoError(t, bt.Validate(String("przeglad-instalacji_pv")))
	assert.NoError(t, bt.Validate(String("przegląd")))

	var fce *FieldConstraintError
	require.ErrorAs(t, bt.Validate(String("a/b")), &fce)
	assert.Equal(t, "slug", fce.Rule)
	require.ErrorAs(t, bt.Validate(String("")), &fce)
	assert.Equal(t, "required", fce.Rule)
}
