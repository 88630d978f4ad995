package pages

import (
	"context"
	"log/slog"
)

// Hooks extend the page lifecycle without changing the service. Hooks of one
// kind run in order; a Before hook returning an error aborts the operation.
type Hooks struct {
	BeforePageSave []BeforePageSaveHook
	AfterPageSave  []AfterPageSaveHook
	BeforePublish  []BeforePublishHook
	AfterPublish   []AfterPublishHook
	OnError        []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]any // custom metadata passed between hooks
	StopChain bool           // set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]any),
	}
}

// BeforePageSaveHook runs after a draft has been decoded and before the page
// is persisted. It may modify the page; the page is validated again after
// the chain.
type BeforePageSaveHook func(hctx *HookContext, page *Page) error

// AfterPageSaveHook runs after the page and its revision are persisted.
type AfterPageSaveHook func(hctx *HookContext, page *Page) error

// BeforePublishHook runs before a page goes live.
type BeforePublishHook func(hctx *HookContext, page *Page) error

// AfterPublishHook runs after a page went live.
type AfterPublishHook func(hctx *HookContext, page *Page) error

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// Merge appends the hooks of other to h.
func (h *Hooks) Merge(other *Hooks) {
	if other == nil {
		return
	}
	h.BeforePageSave = append(h.BeforePageSave, other.BeforePageSave...)
	h.AfterPageSave = append(h.AfterPageSave, other.AfterPageSave...)
	h.BeforePublish = append(h.BeforePublish, other.BeforePublish...)
	h.AfterPublish = append(h.AfterPublish, other.AfterPublish...)
	h.OnError = append(h.OnError, other.OnError...)
}

func runPageHooks[F ~func(*HookContext, *Page) error](ctx context.Context, hooks []F, page *Page) error {
	if len(hooks) == 0 {
		return nil
	}
	hctx := NewHookContext(ctx)
	for _, hook := range hooks {
		if err := hook(hctx, page); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeBeforePageSave(ctx context.Context, page *Page) error {
	return runPageHooks(ctx, h.BeforePageSave, page)
}

func (h *Hooks) executeAfterPageSave(ctx context.Context, page *Page) error {
	return runPageHooks(ctx, h.AfterPageSave, page)
}

func (h *Hooks) executeBeforePublish(ctx context.Context, page *Page) error {
	return runPageHooks(ctx, h.BeforePublish, page)
}

func (h *Hooks) executeAfterPublish(ctx context.Context, page *Page) error {
	return runPageHooks(ctx, h.AfterPublish, page)
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if len(h.OnError) == 0 {
		return
	}
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// LoggingHooks logs saves, publications and errors.
func LoggingHooks(logger *slog.Logger) *Hooks {
	return &Hooks{
		AfterPageSave: []AfterPageSaveHook{
			func(hctx *HookContext, page *Page) error {
				logger.InfoContext(hctx.Context, "Page saved", "page_id", page.ID, "type", page.Type, "revision", page.RevisionID)
				return nil
			},
		},
		AfterPublish: []AfterPublishHook{
			func(hctx *HookContext, page *Page) error {
				logger.InfoContext(hctx.Context, "Page published", "page_id", page.ID, "slug", page.Slug)
				return nil
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				logger.ErrorContext(hctx.Context, "Page operation failed", "operation", operation, "error", err)
			},
		},
	}
}

// ValidationHook adds a custom check before pages are saved.
func ValidationHook(validator func(*Page) error) BeforePageSaveHook {
	return func(hctx *HookContext, page *Page) error {
		return validator(page)
	}
}
