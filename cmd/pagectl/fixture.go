package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// Fixture is a page stored as a JSON file: its type, an optional parent
// referenced by slug, and the draft itself.
type Fixture struct {
	Type       pages.PageType `json:"type"`
	ParentSlug string         `json:"parent_slug,omitempty"`
	pages.Draft
}

// readFixture reads one fixture file.
func readFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
	}
	if fx.Type == "" {
		return nil, fmt.Errorf("%s: missing page type", path)
	}
	return &fx, nil
}

// fixturePaths expands directories into the JSON files they contain, sorted
// by name within each directory.
func fixturePaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// orderFixtures moves fixtures with a parent_slug after the top-level ones,
// keeping the given order otherwise. Parents are resolved at the top level,
// so this imports every parent before its children. Unreadable files stay
// in front, where importing them reports the error.
func orderFixtures(paths []string) []string {
	child := make(map[string]bool, len(paths))
	for _, p := range paths {
		if fx, err := readFixture(p); err == nil && fx.ParentSlug != "" {
			child[p] = true
		}
	}
	out := slices.Clone(paths)
	slices.SortStableFunc(out, func(a, b string) int {
		switch {
		case child[a] == child[b]:
			return 0
		case child[a]:
			return 1
		}
		return -1
	})
	return out
}

func isFixture(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// importResult reports what importFixture did.
type importResult struct {
	Page    *pages.Page
	Created bool
}

// importFixture creates the fixture's page, or replaces the content of the
// page already stored under its slug. With publish set the page goes live.
func importFixture(ctx context.Context, svc pages.Service, fx *Fixture, publish bool) (*importResult, error) {
	var parentID *uuid.UUID
	if fx.ParentSlug != "" {
		parent, err := svc.GetPageBySlug(ctx, nil, fx.ParentSlug)
		if err != nil {
			return nil, fmt.Errorf("parent %q: %w", fx.ParentSlug, err)
		}
		parentID = &parent.ID
	}

	res := &importResult{}
	existing, err := svc.GetPageBySlug(ctx, parentID, fx.Slug)
	switch {
	case errors.Is(err, pages.ErrPageNotFound):
		res.Page, err = svc.CreatePage(ctx, pages.CreatePageRequest{Type: fx.Type, ParentID: parentID, Draft: fx.Draft})
		res.Created = true
	case err != nil:
		return nil, err
	case existing.Type != fx.Type:
		return nil, fmt.Errorf("page %q is a %s page, fixture is %s", fx.Slug, existing.Type, fx.Type)
	default:
		res.Page, err = svc.UpdatePage(ctx, pages.UpdatePageRequest{ID: existing.ID, Draft: fx.Draft})
	}
	if err != nil {
		return nil, err
	}

	if publish && res.Page.Status != pages.PageStatusLive {
		if res.Page, err = svc.PublishPage(ctx, res.Page.ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}
