package pages

import (
	"fmt"
	"sort"

	"github.com/ozeweb/oze-website/pkg/blocks"
)

// FieldDescriptor declares one top-level field of a page type: either a fixed
// field described by Block or a stream field described by Stream.
type FieldDescriptor struct {
	Name  string
	Panel string

	Block *blocks.BlockType

	Stream *blocks.Registry
	// Optional lets a stream field be empty.
	Optional bool
}

// IsStream reports whether the descriptor is a stream field.
func (d FieldDescriptor) IsStream() bool {
	return d.Stream != nil
}

// Field declares a fixed field named after bt.
func Field(panel string, bt *blocks.BlockType) FieldDescriptor {
	return FieldDescriptor{Name: bt.Name, Panel: panel, Block: bt}
}

// StreamField declares a stream field. Stream fields are optional unless
// required is set.
func StreamField(panel, name string, reg *blocks.Registry, required bool) FieldDescriptor {
	return FieldDescriptor{Name: name, Panel: panel, Stream: reg, Optional: !required}
}

// Schema is the content model of a page type. Title and slug are validated
// for every page before the type's own fields.
type Schema struct {
	Type        PageType
	VerboseName string
	Fields      []FieldDescriptor
}

var (
	titleBlock = blocks.Char("title", blocks.MaxLength(255), blocks.Label("Tytuł"))
	slugBlock  = blocks.Slug("slug", blocks.MaxLength(255), blocks.Label("Slug"))
)

// Descriptor returns the named field descriptor.
func (s *Schema) Descriptor(name string) (FieldDescriptor, bool) {
	for _, d := range s.Fields {
		if d.Name == name {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}

// Panels returns the panel headings in the order they first appear.
func (s *Schema) Panels() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range s.Fields {
		if d.Panel == "" || seen[d.Panel] {
			continue
		}
		seen[d.Panel] = true
		out = append(out, d.Panel)
	}
	return out
}

// Decode turns a draft into a page of this type. Every fixed field is checked
// before every stream field, errors are collected across fields and returned
// as ValidationErrors. On error the returned page is nil.
func (s *Schema) Decode(d Draft) (*Page, error) {
	var errs ValidationErrors
	if err := titleBlock.Validate(blocks.String(d.Title)); err != nil {
		errs = append(errs, blocks.Prefix("title", err))
	}
	if err := slugBlock.Validate(blocks.String(d.Slug)); err != nil {
		errs = append(errs, blocks.Prefix("slug", err))
	}

	page := &Page{
		Type:    s.Type,
		Title:   d.Title,
		Slug:    d.Slug,
		Fields:  make(map[string]blocks.Value),
		Streams: make(map[string]blocks.Stream),
	}

	for _, f := range s.fixed() {
		tree, ok := d.Fields[f.Name]
		if !ok {
			if !f.Block.Optional {
				errs = append(errs, &blocks.MissingFieldError{Path: f.Name})
			}
			continue
		}
		v := blocks.FromPortable(tree)
		if err := f.Block.Validate(v); err != nil {
			errs = append(errs, blocks.Prefix(blocks.Path(f.Name), err))
			continue
		}
		page.Fields[f.Name] = v
	}

	for _, f := range s.streams() {
		stream, err := blocks.Decode(d.Fields[f.Name], f.Stream)
		if err == nil {
			err = checkRequired(f, stream)
		}
		if err != nil {
			errs = append(errs, blocks.Prefix(blocks.Path(f.Name), err))
			continue
		}
		page.Streams[f.Name] = stream
	}

	errs = append(errs, s.unexpected(d.Fields)...)
	if len(errs) > 0 {
		return nil, errs
	}
	return page, nil
}

// Validate checks an already decoded page against the schema, with the same
// ordering and accumulation rules as Decode.
func (s *Schema) Validate(p *Page) error {
	if p.Type != s.Type {
		return fmt.Errorf("%w: page of type %q validated against %q schema", ErrUnknownPageType, p.Type, s.Type)
	}
	var errs ValidationErrors
	if err := titleBlock.Validate(blocks.String(p.Title)); err != nil {
		errs = append(errs, blocks.Prefix("title", err))
	}
	if err := slugBlock.Validate(blocks.String(p.Slug)); err != nil {
		errs = append(errs, blocks.Prefix("slug", err))
	}

	for _, f := range s.fixed() {
		v, ok := p.Fields[f.Name]
		if !ok {
			if !f.Block.Optional {
				errs = append(errs, &blocks.MissingFieldError{Path: f.Name})
			}
			continue
		}
		if err := f.Block.Validate(v); err != nil {
			errs = append(errs, blocks.Prefix(blocks.Path(f.Name), err))
		}
	}

	for _, f := range s.streams() {
		if err := validateStream(f, p.Streams[f.Name]); err != nil {
			errs = append(errs, blocks.Prefix(blocks.Path(f.Name), err))
		}
	}

	keys := make(map[string]any, len(p.Fields)+len(p.Streams))
	for k, v := range p.Fields {
		keys[k] = v
	}
	for k, v := range p.Streams {
		keys[k] = v
	}
	errs = append(errs, s.unexpected(keys)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Encode returns the portable content of a page, keyed by field name.
func (s *Schema) Encode(p *Page) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsStream() {
			out[f.Name] = blocks.Encode(p.Streams[f.Name])
			continue
		}
		if v, ok := p.Fields[f.Name]; ok {
			out[f.Name] = v.Portable()
		}
	}
	return out
}

// Load decodes a persisted record into a page. It fails when the stored
// content no longer satisfies the schema.
func (s *Schema) Load(rec *PageRecord) (*Page, error) {
	if rec.Type != s.Type {
		return nil, fmt.Errorf("%w: record of type %q loaded with %q schema", ErrUnknownPageType, rec.Type, s.Type)
	}
	page, err := s.Decode(Draft{Title: rec.Title, Slug: rec.Slug, Fields: rec.Content})
	if err != nil {
		return nil, err
	}
	page.ID = rec.ID
	page.ParentID = rec.ParentID
	page.Status = rec.Status
	page.RevisionID = rec.RevisionID
	page.GoLiveAt = rec.GoLiveAt
	page.PublishedAt = rec.PublishedAt
	page.CreatedAt = rec.CreatedAt
	page.UpdatedAt = rec.UpdatedAt
	page.DeletedAt = rec.DeletedAt
	return page, nil
}

// Record converts a page into its persisted form.
func (s *Schema) Record(p *Page) *PageRecord {
	return &PageRecord{
		ID:          p.ID,
		ParentID:    p.ParentID,
		Type:        p.Type,
		Title:       p.Title,
		Slug:        p.Slug,
		Status:      p.Status,
		Content:     s.Encode(p),
		RevisionID:  p.RevisionID,
		GoLiveAt:    p.GoLiveAt,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		DeletedAt:   p.DeletedAt,
	}
}

// Defaults returns editor prefill values for a new page of this type.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsStream() {
			out[f.Name] = []any{}
			continue
		}
		if f.Block.Optional && f.Block.Default == nil {
			continue
		}
		out[f.Name] = f.Block.DefaultValue().Portable()
	}
	return out
}

func (s *Schema) fixed() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range s.Fields {
		if !f.IsStream() {
			out = append(out, f)
		}
	}
	return out
}

func (s *Schema) streams() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range s.Fields {
		if f.IsStream() {
			out = append(out, f)
		}
	}
	return out
}

func (s *Schema) unexpected(fields map[string]any) []error {
	var names []string
	for k := range fields {
		if _, ok := s.Descriptor(k); !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	var errs []error
	for _, k := range names {
		errs = append(errs, &blocks.UnexpectedFieldError{Path: k})
	}
	return errs
}

func checkRequired(f FieldDescriptor, s blocks.Stream) error {
	if !f.Optional && len(s) == 0 {
		return &blocks.FieldConstraintError{Rule: "required", Message: "add at least one block"}
	}
	return nil
}

func validateStream(f FieldDescriptor, s blocks.Stream) error {
	for i, e := range s {
		path := blocks.Path("").Index(i)
		bt, err := f.Stream.Resolve(e.Type)
		if err != nil {
			return &blocks.UnknownBlockError{Path: path.String(), Name: e.Type}
		}
		if err := bt.Validate(e.Value); err != nil {
			return blocks.Prefix(path, err)
		}
	}
	return checkRequired(f, s)
}
