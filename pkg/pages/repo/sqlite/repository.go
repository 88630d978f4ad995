// Package sqlite stores pages, revisions and images in a single SQLite file
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeFormat is fixed width so stored timestamps compare as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Repository implements pages.Repository on SQLite.
type Repository struct {
	db *sql.DB
}

var _ pages.Repository = (*Repository)(nil)

// Open opens or creates the database at path and applies the schema. The
// path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Repository, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	r := &Repository{db: db}
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Migrate creates the tables and indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id           TEXT PRIMARY KEY,
			parent_id    TEXT REFERENCES pages(id),
			type         TEXT NOT NULL,
			title        TEXT NOT NULL,
			slug         TEXT NOT NULL,
			status       TEXT NOT NULL,
			content      TEXT NOT NULL DEFAULT '{}',
			revision_id  TEXT NOT NULL DEFAULT '',
			go_live_at   TEXT,
			published_at TEXT,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			deleted_at   TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_parent_slug
			ON pages(COALESCE(parent_id, ''), slug) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_pages_status_go_live ON pages(status, go_live_at)`,
		`CREATE TABLE IF NOT EXISTS page_revisions (
			id         TEXT PRIMARY KEY,
			page_id    TEXT NOT NULL REFERENCES pages(id),
			status     TEXT NOT NULL,
			title      TEXT NOT NULL,
			slug       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_revisions_page ON page_revisions(page_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS images (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			file_name       TEXT NOT NULL,
			mime_type       TEXT NOT NULL,
			size            INTEGER NOT NULL,
			object_key      TEXT NOT NULL,
			storage_backend TEXT NOT NULL,
			created_at      TEXT NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := r.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Page operations

const pageColumns = `id, parent_id, type, title, slug, status, content, revision_id,
	go_live_at, published_at, created_at, updated_at, deleted_at`

func (r *Repository) CreatePage(ctx context.Context, page *pages.PageRecord) error {
	content, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID.String(), nullUUID(page.ParentID), string(page.Type), page.Title, page.Slug,
		string(page.Status), string(content), page.RevisionID,
		nullTime(page.GoLiveAt), nullTime(page.PublishedAt),
		formatTime(page.CreatedAt), formatTime(page.UpdatedAt), nullTime(page.DeletedAt))
	if err != nil {
		return handleSQLiteError("create page", err)
	}
	return nil
}

func (r *Repository) GetPage(ctx context.Context, id uuid.UUID) (*pages.PageRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages
		WHERE id = ? AND deleted_at IS NULL`, id.String())
	return scanPage(row)
}

func (r *Repository) GetPageBySlug(ctx context.Context, parentID *uuid.UUID, slug string) (*pages.PageRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages
		WHERE COALESCE(parent_id, '') = ? AND slug = ? AND deleted_at IS NULL`,
		parentKey(parentID), slug)
	return scanPage(row)
}

func (r *Repository) UpdatePage(ctx context.Context, page *pages.PageRecord) error {
	content, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE pages SET
			parent_id = ?, type = ?, title = ?, slug = ?, status = ?, content = ?,
			revision_id = ?, go_live_at = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		nullUUID(page.ParentID), string(page.Type), page.Title, page.Slug, string(page.Status),
		string(content), page.RevisionID, nullTime(page.GoLiveAt), nullTime(page.PublishedAt),
		formatTime(page.UpdatedAt), page.ID.String())
	if err != nil {
		return handleSQLiteError("update page", err)
	}
	return requireAffected(res, pages.ErrPageNotFound)
}

func (r *Repository) DeletePage(ctx context.Context, id uuid.UUID) error {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `UPDATE pages SET status = ?, deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		string(pages.PageStatusDeleted), now, now, id.String())
	if err != nil {
		return handleSQLiteError("delete page", err)
	}
	return requireAffected(res, pages.ErrPageNotFound)
}

func (r *Repository) ListPages(ctx context.Context, filter pages.PageFilter) ([]*pages.PageRecord, error) {
	var where []string
	var args []any
	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.ParentID != nil {
		where = append(where, "parent_id = ?")
		args = append(args, filter.ParentID.String())
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DueBefore != nil {
		where = append(where, "go_live_at IS NOT NULL AND go_live_at <= ?")
		args = append(args, formatTime(*filter.DueBefore))
	}

	query := `SELECT ` + pageColumns + ` FROM pages`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, handleSQLiteError("list pages", err)
	}
	defer rows.Close()

	var result []*pages.PageRecord
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, page)
	}
	return result, rows.Err()
}

// Revision operations

func (r *Repository) CreateRevision(ctx context.Context, rev *pages.Revision) error {
	content, err := json.Marshal(rev.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO page_revisions
			(id, page_id, status, title, slug, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.PageID.String(), string(rev.Status), rev.Title, rev.Slug,
		string(content), formatTime(rev.CreatedAt))
	if err != nil {
		return handleSQLiteError("create revision", err)
	}
	return nil
}

func (r *Repository) ListRevisions(ctx context.Context, pageID uuid.UUID) ([]*pages.Revision, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, page_id, status, title, slug, content, created_at
		FROM page_revisions WHERE page_id = ? ORDER BY created_at DESC, id DESC`, pageID.String())
	if err != nil {
		return nil, handleSQLiteError("list revisions", err)
	}
	defer rows.Close()

	result := make([]*pages.Revision, 0)
	for rows.Next() {
		var (
			rev                 pages.Revision
			id, status, content string
			pageIDText, created string
		)
		if err := rows.Scan(&id, &pageIDText, &status, &rev.Title, &rev.Slug, &content, &created); err != nil {
			return nil, err
		}
		rev.ID = id
		rev.Status = pages.PageStatus(status)
		if rev.PageID, err = uuid.Parse(pageIDText); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(content), &rev.Content); err != nil {
			return nil, fmt.Errorf("decode revision %s content: %w", id, err)
		}
		if rev.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, &rev)
	}
	return result, rows.Err()
}

// Image operations

func (r *Repository) CreateImage(ctx context.Context, img *pages.Image) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO images
			(id, title, file_name, mime_type, size, object_key, storage_backend, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID.String(), img.Title, img.FileName, img.MimeType, img.Size,
		img.ObjectKey, img.StorageBackend, formatTime(img.CreatedAt))
	if err != nil {
		return handleSQLiteError("create image", err)
	}
	return nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*pages.Image, error) {
	var (
		img     pages.Image
		created string
	)
	err := r.db.QueryRowContext(ctx, `SELECT title, file_name, mime_type, size, object_key, storage_backend, created_at
		FROM images WHERE id = ?`, id.String()).
		Scan(&img.Title, &img.FileName, &img.MimeType, &img.Size, &img.ObjectKey, &img.StorageBackend, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pages.ErrImageNotFound
	}
	if err != nil {
		return nil, handleSQLiteError("get image", err)
	}
	img.ID = id
	if img.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &img, nil
}

// helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*pages.PageRecord, error) {
	var (
		page                          pages.PageRecord
		id, pageType, status, content string
		parentID                      sql.NullString
		goLive, published, deleted    sql.NullString
		created, updated              string
	)
	err := row.Scan(&id, &parentID, &pageType, &page.Title, &page.Slug, &status, &content,
		&page.RevisionID, &goLive, &published, &created, &updated, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pages.ErrPageNotFound
	}
	if err != nil {
		return nil, handleSQLiteError("scan page", err)
	}

	if page.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, err
		}
		page.ParentID = &pid
	}
	page.Type = pages.PageType(pageType)
	page.Status = pages.PageStatus(status)
	if err := json.Unmarshal([]byte(content), &page.Content); err != nil {
		return nil, fmt.Errorf("decode page %s content: %w", id, err)
	}
	if page.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if page.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{goLive, &page.GoLiveAt},
		{published, &page.PublishedAt},
		{deleted, &page.DeletedAt},
	} {
		if !f.src.Valid {
			continue
		}
		t, err := parseTime(f.src.String)
		if err != nil {
			return nil, err
		}
		*f.dst = &t
	}
	return &page, nil
}

func handleSQLiteError(operation string, err error) error {
	var se *sqlitedriver.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := se.Error()
		switch {
		case strings.Contains(msg, "idx_pages_parent_slug"):
			return pages.ErrSlugConflict
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("referenced record not found in %s: %w", operation, pages.ErrPageNotFound)
		}
		return fmt.Errorf("constraint violation in %s: %s", operation, msg)
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parentKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
