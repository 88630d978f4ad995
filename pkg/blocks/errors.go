package blocks

import (
	"errors"
	"fmt"
)

// ValidationError is implemented by every error this package reports about
// content. FieldPath is the location of the first offending value and Code a
// short machine readable reason.
type ValidationError interface {
	error
	FieldPath() string
	Code() string
}

// DuplicateNameError is returned when a block name or a struct field name is
// registered twice.
type DuplicateNameError struct {
	Path string
	Name string
}

func (e *DuplicateNameError) Error() string {
	if e.Path == "" || e.Path == e.Name {
		return fmt.Sprintf("duplicate block name %q", e.Name)
	}
	return fmt.Sprintf("%s: duplicate name %q", e.Path, e.Name)
}

func (e *DuplicateNameError) FieldPath() string { return e.Path }
func (e *DuplicateNameError) Code() string      { return "duplicate_name" }

// SchemaError reports a malformed block type definition.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid block type: " + e.Reason
	}
	return fmt.Sprintf("invalid block type at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) FieldPath() string { return e.Path }
func (e *SchemaError) Code() string      { return "invalid_schema" }

// UnknownBlockError is returned when a stream entry names a block type that
// is not registered.
type UnknownBlockError struct {
	Path string
	Name string
}

func (e *UnknownBlockError) Error() string {
	return fmt.Sprintf("%s: unknown block type %q", e.Path, e.Name)
}

func (e *UnknownBlockError) FieldPath() string { return e.Path }
func (e *UnknownBlockError) Code() string      { return "unknown_block" }

// MissingFieldError is returned when a required struct field is absent.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: field is required", e.Path)
}

func (e *MissingFieldError) FieldPath() string { return e.Path }
func (e *MissingFieldError) Code() string      { return "missing_field" }

// UnexpectedFieldError is returned for a struct field the schema does not
// declare.
type UnexpectedFieldError struct {
	Path string
}

func (e *UnexpectedFieldError) Error() string {
	return fmt.Sprintf("%s: unexpected field", e.Path)
}

func (e *UnexpectedFieldError) FieldPath() string { return e.Path }
func (e *UnexpectedFieldError) Code() string      { return "unexpected_field" }

// FieldConstraintError is returned when a value violates a rule such as
// required, max_length or email.
type FieldConstraintError struct {
	Path    string
	Rule    string
	Limit   any
	Message string
}

func (e *FieldConstraintError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "violates " + e.Rule
		if e.Limit != nil {
			msg = fmt.Sprintf("%s (%v)", msg, e.Limit)
		}
	}
	return fmt.Sprintf("%s: %s", e.Path, msg)
}

func (e *FieldConstraintError) FieldPath() string { return e.Path }
func (e *FieldConstraintError) Code() string      { return e.Rule }

// DecodeError is returned when a value has the wrong shape or primitive type,
// or when a stream entry is malformed.
type DecodeError struct {
	Path     string
	Expected string
	Got      string
}

func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "stream"
	}
	return fmt.Sprintf("%s: expected %s, got %s", path, e.Expected, e.Got)
}

func (e *DecodeError) FieldPath() string { return e.Path }
func (e *DecodeError) Code() string      { return "decode" }

// AsValidationError unwraps err to the first ValidationError in its chain.
func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Prefix returns a copy of err with its field path placed under prefix. Errors
// that are not validation errors are returned unchanged.
func Prefix(prefix Path, err error) error {
	if prefix == "" || err == nil {
		return err
	}
	join := func(p string) string {
		if p == "" {
			return string(prefix)
		}
		if p[0] == '[' {
			return string(prefix) + p
		}
		return string(prefix) + "." + p
	}
	switch e := err.(type) {
	case *DuplicateNameError:
		c := *e
		c.Path = join(e.Path)
		return &c
	case *SchemaError:
		c := *e
		c.Path = join(e.Path)
		return &c
	case *UnknownBlockError:
		c := *e
		c.Path = join(e.Path)
		return &c
	case *MissingFieldError:
		return &MissingFieldError{Path: join(e.Path)}
	case *UnexpectedFieldError:
		return &UnexpectedFieldError{Path: join(e.Path)}
	case *FieldConstraintError:
		c := *e
		c.Path = join(e.Path)
		return &c
	case *DecodeError:
		c := *e
		c.Path = join(e.Path)
		return &c
	default:
		return err
	}
}
