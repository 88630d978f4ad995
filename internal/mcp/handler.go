package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/render"
)

// PageToolsHandler exposes the page model to MCP clients
type PageToolsHandler struct {
	service  pages.Service
	renderer *render.Renderer
}

// NewPageToolsHandler creates a new instance of PageToolsHandler. renderer may
// be nil, in which case get_page_markdown is not registered.
func NewPageToolsHandler(service pages.Service, renderer *render.Renderer) *PageToolsHandler {
	return &PageToolsHandler{service: service, renderer: renderer}
}

// PageTypeSummary describes a page type to an MCP client.
type PageTypeSummary struct {
	Type        string         `json:"type"`
	VerboseName string         `json:"verbose_name"`
	Panels      []string       `json:"panels"`
	Fields      []FieldSummary `json:"fields"`
	Defaults    map[string]any `json:"defaults"`
}

// FieldSummary describes one top-level field.
type FieldSummary struct {
	Name     string   `json:"name"`
	Panel    string   `json:"panel,omitempty"`
	Kind     string   `json:"kind"`
	Optional bool     `json:"optional"`
	Blocks   []string `json:"blocks,omitempty"`
}

// ValidationResult is returned by validate_page.
type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors []pages.FieldError `json:"errors,omitempty"`
}

// PageSummary is one entry of list_pages.
type PageSummary struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// RegisterTools registers the page tools with the MCP server
func (h *PageToolsHandler) RegisterTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_page_types",
		mcp.WithDescription("List the page types of the site with their fields, stream block types and editor defaults"),
	), h.handleListPageTypes)

	s.AddTool(mcp.NewTool("validate_page",
		mcp.WithDescription("Validate a page draft against the schema of its page type without saving it"),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Page type: home, service or contact"),
		),
		mcp.WithString("draft",
			mcp.Required(),
			mcp.Description(`Draft as JSON: {"title": "...", "slug": "...", "fields": {...}}`),
		),
	), h.handleValidatePage)

	s.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List stored pages, optionally filtered by type and status"),
		mcp.WithString("type", mcp.Description("Page type filter (optional)")),
		mcp.WithString("status", mcp.Description("Status filter: draft, scheduled or live (optional)")),
	), h.handleListPages)

	if h.renderer != nil {
		s.AddTool(mcp.NewTool("get_page_markdown",
			mcp.WithDescription("Render a page as Markdown. Identify the page by id or by slug"),
			mcp.WithString("id", mcp.Description("Page ID")),
			mcp.WithString("slug", mcp.Description("Page slug, looked up among root pages")),
		), h.handleGetPageMarkdown)
	}
}

func (h *PageToolsHandler) handleListPageTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schemas := h.service.Schemas()
	out := make([]PageTypeSummary, 0, len(schemas))
	for _, t := range schemas.Types() {
		out = append(out, summarizeSchema(schemas[t]))
	}
	return jsonResult(out)
}

func (h *PageToolsHandler) handleValidatePage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageType := stringArg(request, "type")
	if pageType == "" {
		return mcp.NewToolResultError("type is required"), nil
	}
	raw := stringArg(request, "draft")
	if raw == "" {
		return mcp.NewToolResultError("draft is required"), nil
	}

	var draft pages.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("draft is not valid JSON: %v", err)), nil
	}

	err := h.service.ValidateDraft(ctx, pages.PageType(pageType), draft)
	if err == nil {
		return jsonResult(ValidationResult{Valid: true})
	}
	if fieldErrs := pages.FieldErrors(err); len(fieldErrs) > 0 {
		return jsonResult(ValidationResult{Errors: fieldErrs})
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to validate page: %v", err)), nil
}

func (h *PageToolsHandler) handleListPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.service.ListPages(ctx, pages.ListPagesRequest{
		Type:   pages.PageType(stringArg(request, "type")),
		Status: pages.PageStatus(stringArg(request, "status")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list pages: %v", err)), nil
	}

	out := make([]PageSummary, 0, len(list))
	for _, p := range list {
		out = append(out, PageSummary{
			ID:     p.ID.String(),
			Type:   string(p.Type),
			Title:  p.Title,
			Slug:   p.Slug,
			Status: string(p.Status),
		})
	}
	return jsonResult(out)
}

func (h *PageToolsHandler) handleGetPageMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		page *pages.Page
		err  error
	)
	switch id, slug := stringArg(request, "id"), stringArg(request, "slug"); {
	case id != "":
		pageID, perr := uuid.Parse(id)
		if perr != nil {
			return mcp.NewToolResultError("id is not a valid UUID"), nil
		}
		page, err = h.service.GetPage(ctx, pageID)
	case slug != "":
		page, err = h.service.GetPageBySlug(ctx, nil, slug)
	default:
		return mcp.NewToolResultError("id or slug is required"), nil
	}
	if errors.Is(err, pages.ErrPageNotFound) {
		return mcp.NewToolResultError("page not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get page: %v", err)), nil
	}

	md, err := h.renderer.RenderMarkdown(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render page: %v", err)), nil
	}
	return mcp.NewToolResultText(md), nil
}

func summarizeSchema(s *pages.Schema) PageTypeSummary {
	out := PageTypeSummary{
		Type:        string(s.Type),
		VerboseName: s.VerboseName,
		Panels:      s.Panels(),
		Defaults:    s.Defaults(),
	}
	for _, f := range s.Fields {
		fs := FieldSummary{Name: f.Name, Panel: f.Panel}
		if f.IsStream() {
			fs.Kind = "stream"
			fs.Optional = f.Optional
			fs.Blocks = f.Stream.Names()
		} else {
			fs.Kind = f.Block.Kind.String()
			fs.Optional = f.Block.Optional
		}
		out.Fields = append(out.Fields, fs)
	}
	return out
}

func stringArg(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
