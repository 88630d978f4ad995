// Package render turns pages and streams into HTML and Markdown.
//
// Every stream block is rendered by a BlockRenderer looked up by the block
// type's template name. The table is built once in New from the embedded
// templates plus any renderers passed with WithBlockRenderer; New fails when
// a schema names a template that has no renderer.
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/blocks"
	"github.com/ozeweb/oze-website/pkg/pages"
	"golang.org/x/net/html"
)

//go:embed templates/*.html
var templateFS embed.FS

// BlockRenderer writes the HTML of one block value.
type BlockRenderer func(ctx context.Context, w io.Writer, bt *blocks.BlockType, v blocks.Value) error

// ImageResolver resolves an image id to a public URL.
type ImageResolver interface {
	ImageURL(ctx context.Context, id uuid.UUID) (string, error)
}

// Renderer renders pages of a schema set.
type Renderer struct {
	schemas   pages.SchemaSet
	images    ImageResolver
	templates *template.Template
	dispatch  map[string]BlockRenderer
	custom    map[string]BlockRenderer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithImageResolver sets how image ids become URLs. Without one, images are
// left out of the output.
func WithImageResolver(images ImageResolver) Option {
	return func(r *Renderer) {
		r.images = images
	}
}

// WithBlockRenderer registers fn under a template name, replacing the
// embedded template of that name if there is one.
func WithBlockRenderer(name string, fn BlockRenderer) Option {
	return func(r *Renderer) {
		r.custom[name] = fn
	}
}

// New builds a renderer for schemas.
func New(schemas pages.SchemaSet, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		schemas:  schemas,
		dispatch: make(map[string]BlockRenderer),
		custom:   make(map[string]BlockRenderer),
	}
	for _, opt := range opts {
		opt(r)
	}

	tmpl, err := template.New("blocks").Funcs(template.FuncMap{
		"isImage": func(v any) bool {
			_, ok := v.(imageData)
			return ok
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse block templates: %w", err)
	}
	r.templates = tmpl

	for _, t := range tmpl.Templates() {
		switch name := t.Name(); name {
		case "blocks", "block", "scalar", "page":
		default:
			if !strings.HasSuffix(name, ".html") {
				r.dispatch[name] = r.templateRenderer(name)
			}
		}
	}
	for name, fn := range r.custom {
		r.dispatch[name] = fn
	}

	var missing []string
	for _, name := range templateNames(schemas) {
		if _, ok := r.dispatch[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no block renderer for templates: %s", strings.Join(missing, ", "))
	}
	return r, nil
}

// RenderStream renders the entries of a stream in order.
func (r *Renderer) RenderStream(ctx context.Context, reg *blocks.Registry, s blocks.Stream) (template.HTML, error) {
	var buf bytes.Buffer
	for i, e := range s {
		bt, err := reg.Resolve(e.Type)
		if err != nil {
			return "", &blocks.UnknownBlockError{Path: blocks.Path("").Index(i).String(), Name: e.Type}
		}
		if err := r.renderBlock(ctx, &buf, bt, e.Value); err != nil {
			return "", fmt.Errorf("render block %d (%s): %w", i, e.Type, err)
		}
		buf.WriteByte('\n')
	}
	return template.HTML(buf.String()), nil
}

// RenderPage renders the title, fixed fields and streams of a page in schema
// order.
func (r *Renderer) RenderPage(ctx context.Context, p *pages.Page) (template.HTML, error) {
	schema, err := r.schemas.Get(p.Type)
	if err != nil {
		return "", err
	}

	type section struct {
		Class string
		Name  string
		HTML  template.HTML
	}
	data := struct {
		Type     pages.PageType
		Title    string
		Sections []section
	}{Type: p.Type, Title: p.Title}

	for _, f := range schema.Fields {
		if f.IsStream() {
			s := p.Stream(f.Name)
			if len(s) == 0 {
				continue
			}
			out, err := r.RenderStream(ctx, f.Stream, s)
			if err != nil {
				return "", fmt.Errorf("%s: %w", f.Name, err)
			}
			data.Sections = append(data.Sections, section{Class: "stream", Name: f.Name, HTML: out})
			continue
		}

		v, ok := p.Fields[f.Name]
		if !ok {
			continue
		}
		var buf bytes.Buffer
		if err := r.renderBlock(ctx, &buf, f.Block, v); err != nil {
			return "", fmt.Errorf("%s: %w", f.Name, err)
		}
		data.Sections = append(data.Sections, section{Class: "field", Name: f.Name, HTML: template.HTML(buf.String())})
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "page", data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// RenderMarkdown renders a page to Markdown by converting its HTML.
func (r *Renderer) RenderMarkdown(ctx context.Context, p *pages.Page) (string, error) {
	out, err := r.RenderPage(ctx, p)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(strings.NewReader(string(out)))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	md, err := htmltomarkdown.ConvertNode(doc)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return strings.TrimSpace(string(md)) + "\n", nil
}

func (r *Renderer) renderBlock(ctx context.Context, w io.Writer, bt *blocks.BlockType, v blocks.Value) error {
	if bt.Template != "" {
		fn, ok := r.dispatch[bt.Template]
		if !ok {
			return fmt.Errorf("no block renderer for template %q", bt.Template)
		}
		return fn(ctx, w, bt, v)
	}
	return r.renderGeneric(ctx, w, bt, v)
}

func (r *Renderer) templateRenderer(name string) BlockRenderer {
	return func(ctx context.Context, w io.Writer, bt *blocks.BlockType, v blocks.Value) error {
		data, err := r.prepare(ctx, bt, v)
		if err != nil {
			return err
		}
		return r.templates.ExecuteTemplate(w, name, data)
	}
}

type field struct {
	Name  string
	Value any
}

// renderGeneric renders the scalar parts of a block without a template of
// its own.
func (r *Renderer) renderGeneric(ctx context.Context, w io.Writer, bt *blocks.BlockType, v blocks.Value) error {
	data := struct {
		Name   string
		Fields []field
	}{Name: bt.Name}

	switch bt.Kind {
	case blocks.KindScalar:
		value, err := r.prepare(ctx, bt, v)
		if err != nil {
			return err
		}
		data.Fields = append(data.Fields, field{Name: bt.Name, Value: value})
	case blocks.KindStruct:
		for _, child := range bt.Children {
			cv, ok := v.Field(child.Name)
			if !ok || child.Kind != blocks.KindScalar || cv.Scalar == nil {
				continue
			}
			value, err := r.prepare(ctx, child, cv)
			if err != nil {
				return err
			}
			data.Fields = append(data.Fields, field{Name: child.Name, Value: value})
		}
	case blocks.KindList:
		for i, item := range v.Items {
			if err := r.renderGeneric(ctx, w, bt.Elem, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	}
	return r.templates.ExecuteTemplate(w, "block", data)
}

type imageData struct {
	ID  string
	URL string
}

// prepare converts a value to template data: structs become maps, lists
// slices, rich text trusted HTML and images imageData with a resolved URL.
func (r *Renderer) prepare(ctx context.Context, bt *blocks.BlockType, v blocks.Value) (any, error) {
	switch bt.Kind {
	case blocks.KindStruct:
		out := make(map[string]any, len(bt.Children))
		for _, child := range bt.Children {
			cv, ok := v.Field(child.Name)
			if !ok {
				continue
			}
			d, err := r.prepare(ctx, child, cv)
			if err != nil {
				return nil, err
			}
			out[child.Name] = d
		}
		return out, nil
	case blocks.KindList:
		out := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			d, err := r.prepare(ctx, bt.Elem, item)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}

	switch bt.Format {
	case blocks.FormatRichText:
		// Rich text is checked against the allowed tag list on decode.
		return template.HTML(v.Text()), nil
	case blocks.FormatImage:
		return r.resolveImage(ctx, v.Text())
	}
	return v.Scalar, nil
}

func (r *Renderer) resolveImage(ctx context.Context, ref string) (imageData, error) {
	img := imageData{ID: ref}
	if r.images == nil || ref == "" {
		return img, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return img, nil
	}
	u, err := r.images.ImageURL(ctx, id)
	if errors.Is(err, pages.ErrImageNotFound) {
		return img, nil
	}
	if err != nil {
		return img, err
	}
	img.URL = u
	return img, nil
}

// templateNames lists every template named by a block type of schemas.
func templateNames(schemas pages.SchemaSet) []string {
	seen := make(map[string]bool)
	var walk func(bt *blocks.BlockType)
	walk = func(bt *blocks.BlockType) {
		if bt == nil {
			return
		}
		if bt.Template != "" {
			seen[bt.Template] = true
		}
		for _, c := range bt.Children {
			walk(c)
		}
		walk(bt.Elem)
	}
	for _, schema := range schemas {
		for _, f := range schema.Fields {
			if !f.IsStream() {
				walk(f.Block)
				continue
			}
			for _, name := range f.Stream.Names() {
				bt, _ := f.Stream.Resolve(name)
				walk(bt)
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
