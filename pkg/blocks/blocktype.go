package blocks

// Format selects the primitive validator of a scalar block type.
type Format string

// Scalar formats.
const (
	FormatText      Format = "text"
	FormatMultiline Format = "multiline"
	FormatRichText  Format = "richtext"
	FormatEmail     Format = "email"
	FormatEmailList Format = "email_list"
	FormatURL       Format = "url"
	FormatNumber    Format = "number"
	FormatBoolean   Format = "boolean"
	FormatChoice    Format = "choice"
	FormatImage     Format = "image"
	FormatPage      Format = "page"
	FormatSlug      Format = "slug"
)

// BlockType describes the schema of one variant of content.
//
// Scalar types carry validation rules, struct types carry ordered children
// (a child's Name is its field name) and list types carry a single element
// type. Block types are built once at startup and must not be modified after
// they have been registered.
type BlockType struct {
	Name     string
	Kind     Kind
	Label    string
	Icon     string
	Template string
	HelpText string

	// Optional marks a struct child that may be absent, or a scalar that
	// may be empty.
	Optional bool

	// Default is the portable value an editor prefills for a new block.
	// It is never applied while decoding.
	Default any

	Format    Format
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
	Choices   []string

	Children []*BlockType

	Elem     *BlockType
	MinItems int
	MaxItems int
}

// Option configures a BlockType at construction time.
type Option func(*BlockType)

// Optional lets a struct child be absent and a scalar be empty.
func Optional() Option {
	return func(bt *BlockType) { bt.Optional = true }
}

// MaxLength limits a scalar's length in characters.
func MaxLength(n int) Option {
	return func(bt *BlockType) { bt.MaxLength = n }
}

// MinLength sets a scalar's minimum length in characters.
func MinLength(n int) Option {
	return func(bt *BlockType) { bt.MinLength = n }
}

// Range bounds a numeric scalar.
func Range(min, max float64) Option {
	return func(bt *BlockType) {
		bt.Min = &min
		bt.Max = &max
	}
}

// MinItems sets the minimum number of list elements. MinItems(1) marks a
// list as required-nonempty.
func MinItems(n int) Option {
	return func(bt *BlockType) { bt.MinItems = n }
}

// MaxItems limits the number of list elements.
func MaxItems(n int) Option {
	return func(bt *BlockType) { bt.MaxItems = n }
}

// Default sets the editor prefill value.
func Default(v any) Option {
	return func(bt *BlockType) { bt.Default = v }
}

// Label sets the human readable name shown in the editor.
func Label(s string) Option {
	return func(bt *BlockType) { bt.Label = s }
}

// Icon sets the editor icon.
func Icon(s string) Option {
	return func(bt *BlockType) { bt.Icon = s }
}

// Template names the template used to render the block.
func Template(s string) Option {
	return func(bt *BlockType) { bt.Template = s }
}

// HelpText sets the editor help text.
func HelpText(s string) Option {
	return func(bt *BlockType) { bt.HelpText = s }
}

func newScalar(name string, format Format, opts []Option) *BlockType {
	bt := &BlockType{Name: name, Kind: KindScalar, Format: format}
	return bt.With(opts...)
}

// Char is a short text block, edited in a single-line input.
func Char(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatText, opts)
}

// Text is a multi-line plain text block.
func Text(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatMultiline, opts)
}

// RichText is an HTML fragment limited to the editor's formatting tags.
func RichText(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatRichText, opts)
}

// Email is an e-mail address block.
func Email(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatEmail, opts)
}

// EmailList is a comma separated list of e-mail addresses, as used for
// form recipients.
func EmailList(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatEmailList, opts)
}

// URL is an absolute http(s) URL block.
func URL(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatURL, opts)
}

// Number is a numeric block.
func Number(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatNumber, opts)
}

// Boolean is a checkbox block.
func Boolean(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatBoolean, opts)
}

// Choice is a string block restricted to the given choices.
func Choice(name string, choices []string, opts ...Option) *BlockType {
	bt := newScalar(name, FormatChoice, opts)
	bt.Choices = append([]string(nil), choices...)
	return bt
}

// Image references an image in the image library by its UUID.
func Image(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatImage, opts)
}

// PageLink references another page by its UUID.
func PageLink(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatPage, opts)
}

// Slug is a URL path segment of letters, digits, hyphens and underscores.
func Slug(name string, opts ...Option) *BlockType {
	return newScalar(name, FormatSlug, opts)
}

// Struct is a record of named children, validated in declaration order.
// Use With to attach options.
func Struct(name string, children ...*BlockType) *BlockType {
	return &BlockType{Name: name, Kind: KindStruct, Children: children}
}

// List is a homogeneous ordered collection of elem.
func List(name string, elem *BlockType, opts ...Option) *BlockType {
	bt := &BlockType{Name: name, Kind: KindList, Elem: elem}
	return bt.With(opts...)
}

// With applies options and returns the same block type.
func (bt *BlockType) With(opts ...Option) *BlockType {
	for _, opt := range opts {
		if opt != nil {
			opt(bt)
		}
	}
	return bt
}

// Child returns the struct child with the given field name, or nil.
func (bt *BlockType) Child(name string) *BlockType {
	for _, c := range bt.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// DefaultValue returns the prefill value for a new block of this type.
// Struct defaults include every child that is required or has a default.
func (bt *BlockType) DefaultValue() Value {
	if bt.Default != nil {
		return FromPortable(bt.Default)
	}
	switch bt.Kind {
	case KindStruct:
		fields := make(map[string]Value, len(bt.Children))
		for _, c := range bt.Children {
			if c.Optional && c.Default == nil {
				continue
			}
			fields[c.Name] = c.DefaultValue()
		}
		return StructOf(fields)
	case KindList:
		return ListOf()
	default:
		switch bt.Format {
		case FormatNumber, FormatBoolean, FormatImage, FormatPage:
			return Scalar(nil)
		default:
			return String("")
		}
	}
}

// check verifies that the block type is well formed.
func (bt *BlockType) check(path Path) error {
	if bt == nil {
		return &SchemaError{Path: path.String(), Reason: "nil block type"}
	}
	switch bt.Kind {
	case KindScalar:
		if bt.Format == "" {
			return &SchemaError{Path: path.String(), Reason: "scalar without format"}
		}
		if bt.Format == FormatChoice && len(bt.Choices) == 0 {
			return &SchemaError{Path: path.String(), Reason: "choice without choices"}
		}
	case KindStruct:
		seen := make(map[string]bool, len(bt.Children))
		for _, c := range bt.Children {
			if c == nil || c.Name == "" {
				return &SchemaError{Path: path.String(), Reason: "struct child without name"}
			}
			if seen[c.Name] {
				return &DuplicateNameError{Path: path.Field(c.Name).String(), Name: c.Name}
			}
			seen[c.Name] = true
			if err := c.check(path.Field(c.Name)); err != nil {
				return err
			}
		}
	case KindList:
		if bt.Elem == nil {
			return &SchemaError{Path: path.String(), Reason: "list without element type"}
		}
		return bt.Elem.check(path.Index(0))
	default:
		return &SchemaError{Path: path.String(), Reason: "unknown kind " + bt.Kind.String()}
	}
	return nil
}
