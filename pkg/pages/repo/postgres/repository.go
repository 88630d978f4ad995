package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements pages.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

var _ pages.Repository = (*Repository)(nil)

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the tables and indexes in the current search_path if they
// do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id           UUID PRIMARY KEY,
			parent_id    UUID REFERENCES pages(id),
			type         VARCHAR(32) NOT NULL,
			title        VARCHAR(255) NOT NULL,
			slug         VARCHAR(255) NOT NULL,
			status       VARCHAR(32) NOT NULL,
			content      JSONB NOT NULL DEFAULT '{}'::jsonb,
			revision_id  VARCHAR(26) NOT NULL DEFAULT '',
			go_live_at   TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL,
			deleted_at   TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_parent_slug
			ON pages (COALESCE(parent_id, '00000000-0000-0000-0000-000000000000'::uuid), slug)
			WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_pages_status_go_live ON pages (status, go_live_at)`,
		`CREATE TABLE IF NOT EXISTS page_revisions (
			id         VARCHAR(26) PRIMARY KEY,
			page_id    UUID NOT NULL REFERENCES pages(id),
			status     VARCHAR(32) NOT NULL,
			title      VARCHAR(255) NOT NULL,
			slug       VARCHAR(255) NOT NULL,
			content    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_revisions_page ON page_revisions (page_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS images (
			id              UUID PRIMARY KEY,
			title           VARCHAR(255) NOT NULL,
			file_name       VARCHAR(255) NOT NULL,
			mime_type       VARCHAR(255) NOT NULL,
			size            BIGINT NOT NULL,
			object_key      TEXT NOT NULL,
			storage_backend VARCHAR(64) NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return r.handlePostgresError("migrate", err)
		}
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "idx_pages_parent_slug" {
				return pages.ErrSlugConflict
			}
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s: %w", operation, pages.ErrPageNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Page operations

const pageColumns = `id, parent_id, type, title, slug, status, content, revision_id,
	go_live_at, published_at, created_at, updated_at, deleted_at`

func (r *Repository) CreatePage(ctx context.Context, page *pages.PageRecord) error {
	query := `INSERT INTO pages (` + pageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		page.ID, page.ParentID, string(page.Type), page.Title, page.Slug, string(page.Status),
		content(page.Content), page.RevisionID, page.GoLiveAt, page.PublishedAt,
		page.CreatedAt, page.UpdatedAt, page.DeletedAt)
	if err != nil {
		return r.handlePostgresError("create page", err)
	}
	return nil
}

func (r *Repository) GetPage(ctx context.Context, id uuid.UUID) (*pages.PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 AND deleted_at IS NULL`
	return r.scanPage(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetPageBySlug(ctx context.Context, parentID *uuid.UUID, slug string) (*pages.PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages
		WHERE parent_id IS NOT DISTINCT FROM $1 AND slug = $2 AND deleted_at IS NULL`
	return r.scanPage(r.db.QueryRow(ctx, query, parentID, slug))
}

func (r *Repository) UpdatePage(ctx context.Context, page *pages.PageRecord) error {
	query := `
		UPDATE pages SET
			parent_id = $2, type = $3, title = $4, slug = $5, status = $6, content = $7,
			revision_id = $8, go_live_at = $9, published_at = $10, updated_at = $11
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		page.ID, page.ParentID, string(page.Type), page.Title, page.Slug, string(page.Status),
		content(page.Content), page.RevisionID, page.GoLiveAt, page.PublishedAt, page.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update page", err)
	}
	if tag.RowsAffected() == 0 {
		return pages.ErrPageNotFound
	}
	return nil
}

func (r *Repository) DeletePage(ctx context.Context, id uuid.UUID) error {
	// Soft delete: the row stays for revision history
	query := `UPDATE pages SET status = $2, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, string(pages.PageStatusDeleted))
	if err != nil {
		return r.handlePostgresError("delete page", err)
	}
	if tag.RowsAffected() == 0 {
		return pages.ErrPageNotFound
	}
	return nil
}

func (r *Repository) ListPages(ctx context.Context, filter pages.PageFilter) ([]*pages.PageRecord, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.Type != "" {
		where = append(where, "type = "+arg(string(filter.Type)))
	}
	if filter.ParentID != nil {
		where = append(where, "parent_id = "+arg(*filter.ParentID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.DueBefore != nil {
		where = append(where, "go_live_at <= "+arg(*filter.DueBefore))
	}

	query := `SELECT ` + pageColumns + ` FROM pages`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list pages", err)
	}
	defer rows.Close()

	var results []*pages.PageRecord
	for rows.Next() {
		page, err := r.scanPage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, page)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate page rows", err)
	}
	return results, nil
}

// Revision operations

func (r *Repository) CreateRevision(ctx context.Context, rev *pages.Revision) error {
	query := `
		INSERT INTO page_revisions (id, page_id, status, title, slug, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		rev.ID, rev.PageID, string(rev.Status), rev.Title, rev.Slug, content(rev.Content), rev.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create revision", err)
	}
	return nil
}

func (r *Repository) ListRevisions(ctx context.Context, pageID uuid.UUID) ([]*pages.Revision, error) {
	query := `
		SELECT id, page_id, status, title, slug, content, created_at
		FROM page_revisions WHERE page_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, r.handlePostgresError("list revisions", err)
	}
	defer rows.Close()

	results := make([]*pages.Revision, 0)
	for rows.Next() {
		var rev pages.Revision
		var status string
		if err := rows.Scan(&rev.ID, &rev.PageID, &status, &rev.Title, &rev.Slug, &rev.Content, &rev.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan revision", err)
		}
		rev.Status = pages.PageStatus(status)
		rev.CreatedAt = rev.CreatedAt.UTC()
		results = append(results, &rev)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate revision rows", err)
	}
	return results, nil
}

// Image operations

func (r *Repository) CreateImage(ctx context.Context, img *pages.Image) error {
	query := `
		INSERT INTO images (id, title, file_name, mime_type, size, object_key, storage_backend, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		img.ID, img.Title, img.FileName, img.MimeType, img.Size, img.ObjectKey, img.StorageBackend, img.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create image", err)
	}
	return nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*pages.Image, error) {
	query := `
		SELECT id, title, file_name, mime_type, size, object_key, storage_backend, created_at
		FROM images WHERE id = $1`

	var img pages.Image
	err := r.db.QueryRow(ctx, query, id).Scan(
		&img.ID, &img.Title, &img.FileName, &img.MimeType, &img.Size,
		&img.ObjectKey, &img.StorageBackend, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pages.ErrImageNotFound
		}
		return nil, r.handlePostgresError("get image", err)
	}
	img.CreatedAt = img.CreatedAt.UTC()
	return &img, nil
}

// helpers

func (r *Repository) scanPage(row pgx.Row) (*pages.PageRecord, error) {
	var page pages.PageRecord
	var pageType, status string
	err := row.Scan(
		&page.ID, &page.ParentID, &pageType, &page.Title, &page.Slug, &status,
		&page.Content, &page.RevisionID, &page.GoLiveAt, &page.PublishedAt,
		&page.CreatedAt, &page.UpdatedAt, &page.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pages.ErrPageNotFound
		}
		return nil, r.handlePostgresError("scan page", err)
	}
	page.Type = pages.PageType(pageType)
	page.Status = pages.PageStatus(status)
	page.CreatedAt = page.CreatedAt.UTC()
	page.UpdatedAt = page.UpdatedAt.UTC()
	for _, t := range []**time.Time{&page.GoLiveAt, &page.PublishedAt, &page.DeletedAt} {
		if *t != nil {
			utc := (*t).UTC()
			*t = &utc
		}
	}
	return &page, nil
}

// content keeps a nil tree from being stored as JSON null.
func content(tree map[string]any) map[string]any {
	if tree == nil {
		return map[string]any{}
	}
	return tree
}
