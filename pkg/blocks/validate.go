package blocks

import (
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validate checks v against the block type and returns the first violation
// as a ValidationError. Struct fields are checked in declaration order,
// undeclared fields in lexical order and list elements by index, so the
// reported error is deterministic.
func (bt *BlockType) Validate(v Value) error {
	return bt.validate(v, "")
}

func (bt *BlockType) validate(v Value, path Path) error {
	switch bt.Kind {
	case KindStruct:
		return bt.validateStruct(v, path)
	case KindList:
		return bt.validateList(v, path)
	default:
		return bt.validateScalar(v, path)
	}
}

func (bt *BlockType) validateStruct(v Value, path Path) error {
	if v.Kind != KindStruct {
		return &DecodeError{Path: path.String(), Expected: "struct", Got: describe(v)}
	}
	for _, child := range bt.Children {
		fv, ok := v.Fields[child.Name]
		if !ok {
			if child.Optional {
				continue
			}
			return &MissingFieldError{Path: path.Field(child.Name).String()}
		}
		if err := child.validate(fv, path.Field(child.Name)); err != nil {
			return err
		}
	}
	for _, k := range v.sortedKeys() {
		if bt.Child(k) == nil {
			return &UnexpectedFieldError{Path: path.Field(k).String()}
		}
	}
	return nil
}

func (bt *BlockType) validateList(v Value, path Path) error {
	if v.Kind != KindList {
		return &DecodeError{Path: path.String(), Expected: "list", Got: describe(v)}
	}
	n := len(v.Items)
	if bt.MinItems > 0 && n < bt.MinItems {
		rule := "min_items"
		msg := fmt.Sprintf("must contain at least %d item(s)", bt.MinItems)
		if n == 0 {
			rule, msg = "required", "this field is required"
		}
		return &FieldConstraintError{Path: path.String(), Rule: rule, Limit: bt.MinItems, Message: msg}
	}
	if bt.MaxItems > 0 && n > bt.MaxItems {
		return &FieldConstraintError{
			Path:    path.String(),
			Rule:    "max_items",
			Limit:   bt.MaxItems,
			Message: fmt.Sprintf("must contain at most %d item(s)", bt.MaxItems),
		}
	}
	for i, item := range v.Items {
		if err := bt.Elem.validate(item, path.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (bt *BlockType) validateScalar(v Value, path Path) error {
	if v.Kind != KindScalar {
		return &DecodeError{Path: path.String(), Expected: string(bt.Format), Got: describe(v)}
	}
	if want := bt.primitive(); v.Scalar != nil && primitiveName(v.Scalar) != want {
		return &DecodeError{Path: path.String(), Expected: want, Got: primitiveName(v.Scalar)}
	}

	if isBlank(v.Scalar) {
		if bt.Optional {
			return nil
		}
		return &FieldConstraintError{Path: path.String(), Rule: "required", Message: "this field is required"}
	}

	switch s := v.Scalar.(type) {
	case string:
		return bt.validateString(s, path)
	case float64:
		return bt.validateNumber(s, path)
	}
	return nil
}

func (bt *BlockType) validateString(s string, path Path) error {
	n := utf8.RuneCountInString(s)
	if bt.MinLength > 0 && n < bt.MinLength {
		return &FieldConstraintError{
			Path:    path.String(),
			Rule:    "min_length",
			Limit:   bt.MinLength,
			Message: fmt.Sprintf("must be at least %d characters", bt.MinLength),
		}
	}
	if bt.MaxLength > 0 && n > bt.MaxLength {
		return &FieldConstraintError{
			Path:    path.String(),
			Rule:    "max_length",
			Limit:   bt.MaxLength,
			Message: fmt.Sprintf("must be at most %d characters (has %d)", bt.MaxLength, n),
		}
	}

	switch bt.Format {
	case FormatSlug:
		if !validSlug(s) {
			return &FieldConstraintError{Path: path.String(), Rule: "slug", Message: "use only letters, numbers, hyphens and underscores"}
		}
	case FormatEmail:
		if !validEmail(s) {
			return &FieldConstraintError{Path: path.String(), Rule: "email", Message: "enter a valid email address"}
		}
	case FormatEmailList:
		if bad, ok := validEmailList(s); !ok {
			return &FieldConstraintError{Path: path.String(), Rule: "email", Message: fmt.Sprintf("%q is not a valid email address", bad)}
		}
	case FormatImage, FormatPage:
		if _, err := uuid.Parse(s); err != nil {
			return &FieldConstraintError{
				Path:    path.String(),
				Rule:    "reference",
				Message: fmt.Sprintf("%q is not a valid %s id", s, bt.Format),
			}
		}
	case FormatURL:
		if !validURL(s) {
			return &FieldConstraintError{Path: path.String(), Rule: "url", Message: "enter a valid http(s) URL"}
		}
	case FormatChoice:
		if !slices.Contains(bt.Choices, s) {
			return &FieldConstraintError{
				Path:    path.String(),
				Rule:    "choice",
				Limit:   bt.Choices,
				Message: fmt.Sprintf("%q is not one of the available choices", s),
			}
		}
	case FormatRichText:
		if err := checkRichText(s); err != nil {
			return &FieldConstraintError{Path: path.String(), Rule: "allowed_tags", Message: err.Error()}
		}
	}
	return nil
}

func (bt *BlockType) validateNumber(f float64, path Path) error {
	if bt.Min != nil && f < *bt.Min {
		return &FieldConstraintError{Path: path.String(), Rule: "min_value", Limit: *bt.Min}
	}
	if bt.Max != nil && f > *bt.Max {
		return &FieldConstraintError{Path: path.String(), Rule: "max_value", Limit: *bt.Max}
	}
	return nil
}

// primitive is the JSON type a scalar of this format must hold.
func (bt *BlockType) primitive() string {
	switch bt.Format {
	case FormatNumber:
		return "number"
	case FormatBoolean:
		return "boolean"
	default:
		return "string"
	}
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	}
	return false
}

func describe(v Value) string {
	if v.Kind == KindScalar {
		return primitiveName(v.Scalar)
	}
	return v.Kind.String()
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// validEmailList returns the first entry that is not an address.
func validEmailList(s string) (string, bool) {
	for _, addr := range strings.Split(s, ",") {
		addr = strings.TrimSpace(addr)
		if !validEmail(addr) {
			return addr, false
		}
	}
	return "", true
}

func validSlug(s string) bool {
	for _, r := range s {
		if r != '-' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate is the function form of BlockType.Validate.
func Validate(v Value, bt *BlockType) error {
	return bt.Validate(v)
}
