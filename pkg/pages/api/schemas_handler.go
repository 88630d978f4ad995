package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/ozeweb/oze-website/pkg/blocks"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// BlockTypeResponse describes a block type to the editor.
type BlockTypeResponse struct {
	Name      string              `json:"name"`
	Kind      string              `json:"kind"`
	Format    string              `json:"format,omitempty"`
	Label     string              `json:"label,omitempty"`
	Icon      string              `json:"icon,omitempty"`
	HelpText  string              `json:"help_text,omitempty"`
	Optional  bool                `json:"optional,omitempty"`
	Default   any                 `json:"default,omitempty"`
	MaxLength int                 `json:"max_length,omitempty"`
	Choices   []string            `json:"choices,omitempty"`
	Children  []BlockTypeResponse `json:"children,omitempty"`
	Elem      *BlockTypeResponse  `json:"elem,omitempty"`
	MinItems  int                 `json:"min_items,omitempty"`
	MaxItems  int                 `json:"max_items,omitempty"`
}

// FieldResponse describes a top-level page field.
type FieldResponse struct {
	Name     string              `json:"name"`
	Panel    string              `json:"panel,omitempty"`
	Stream   bool                `json:"stream"`
	Optional bool                `json:"optional"`
	Block    *BlockTypeResponse  `json:"block,omitempty"`
	Blocks   []BlockTypeResponse `json:"blocks,omitempty"`
}

// SchemaResponse describes a page type.
type SchemaResponse struct {
	Type        string          `json:"type"`
	VerboseName string          `json:"verbose_name"`
	Panels      []string        `json:"panels"`
	Fields      []FieldResponse `json:"fields"`
}

// ValidateResponse is returned for a valid draft.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// ListSchemas lists the schemas of every page type
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas := h.service.Schemas()
	resp := make([]SchemaResponse, 0, len(schemas))
	for _, t := range schemas.Types() {
		resp = append(resp, schemaToResponse(schemas[t]))
	}
	render.JSON(w, r, resp)
}

// GetSchema returns the schema of one page type
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.service.Schemas().Get(pages.PageType(chi.URLParam(r, "type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, schemaToResponse(schema))
}

// GetDefaults returns editor prefill values for a new page
func (h *Handler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	schema, err := h.service.Schemas().Get(pages.PageType(chi.URLParam(r, "type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, schema.Defaults())
}

// ValidateDraft checks a draft without saving it
func (h *Handler) ValidateDraft(w http.ResponseWriter, r *http.Request) {
	var draft pages.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.service.ValidateDraft(r.Context(), pages.PageType(chi.URLParam(r, "type")), draft); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, ValidateResponse{Valid: true})
}

func schemaToResponse(s *pages.Schema) SchemaResponse {
	resp := SchemaResponse{
		Type:        string(s.Type),
		VerboseName: s.VerboseName,
		Panels:      s.Panels(),
		Fields:      make([]FieldResponse, 0, len(s.Fields)),
	}
	for _, f := range s.Fields {
		fr := FieldResponse{Name: f.Name, Panel: f.Panel, Stream: f.IsStream()}
		if f.IsStream() {
			fr.Optional = f.Optional
			for _, name := range f.Stream.Names() {
				bt, _ := f.Stream.Resolve(name)
				br := blockToResponse(bt)
				br.Name = name
				fr.Blocks = append(fr.Blocks, br)
			}
		} else {
			fr.Optional = f.Block.Optional
			br := blockToResponse(f.Block)
			fr.Block = &br
		}
		resp.Fields = append(resp.Fields, fr)
	}
	return resp
}

func blockToResponse(bt *blocks.BlockType) BlockTypeResponse {
	resp := BlockTypeResponse{
		Name:      bt.Name,
		Kind:      bt.Kind.String(),
		Format:    string(bt.Format),
		Label:     bt.Label,
		Icon:      bt.Icon,
		HelpText:  bt.HelpText,
		Optional:  bt.Optional,
		Default:   bt.Default,
		MaxLength: bt.MaxLength,
		Choices:   bt.Choices,
		MinItems:  bt.MinItems,
		MaxItems:  bt.MaxItems,
	}
	for _, c := range bt.Children {
		resp.Children = append(resp.Children, blockToResponse(c))
	}
	if bt.Elem != nil {
		elem := blockToResponse(bt.Elem)
		resp.Elem = &elem
	}
	return resp
}
