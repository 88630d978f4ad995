// Package fs stores image files under a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ozeweb/oze-website/pkg/pages"
)

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // created when missing
	URLPrefix string // where BaseDir is served, e.g. "/media"; empty means API only
}

// Backend is a pages.BlobStore rooted at one directory.
type Backend struct {
	root   string
	prefix string
}

var _ pages.BlobStore = (*Backend)(nil)

// New creates the base directory if needed.
func New(cfg Config) (*Backend, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	root := filepath.Clean(cfg.BaseDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}
	return &Backend{root: root, prefix: strings.TrimRight(cfg.URLPrefix, "/")}, nil
}

func (b *Backend) resolve(objectKey string) (string, error) {
	p := filepath.Join(b.root, filepath.FromSlash(objectKey))
	rel, err := filepath.Rel(b.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return p, nil
}

// Upload writes to a temporary file next to the target and renames it into
// place, so readers never see a partial image.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, params pages.UploadParams) error {
	target, err := b.resolve(objectKey)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", objectKey, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to store %s: %w", objectKey, err)
	}
	return nil
}

// Download opens the file for reading.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	p, err := b.resolve(objectKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// Delete removes the file and prunes directories it leaves empty.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	p, err := b.resolve(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return notFound(err)
	}
	for dir := filepath.Dir(p); dir != b.root; dir = filepath.Dir(dir) {
		// Remove fails on non-empty directories, which ends the walk.
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// GetObjectMeta stats the file. The content type comes from the extension,
// falling back to sniffing the first bytes.
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*pages.ObjectMeta, error) {
	p, err := b.resolve(objectKey)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, notFound(err)
	}
	return &pages.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType(p),
		UpdatedAt:   info.ModTime().UTC(),
	}, nil
}

// URL joins URLPrefix and the key, or returns "" without a prefix.
func (b *Backend) URL(ctx context.Context, objectKey string) (string, error) {
	if b.prefix == "" {
		return "", nil
	}
	return b.prefix + "/" + strings.TrimLeft(objectKey, "/"), nil
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	return http.DetectContentType(head[:n])
}

func notFound(err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return pages.ErrObjectNotFound
	}
	return err
}
