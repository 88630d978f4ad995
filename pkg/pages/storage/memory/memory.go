// Package memory keeps image files in process memory. Used by tests and the
// memory database mode.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/ozeweb/oze-website/pkg/pages"
)

type blob struct {
	data     []byte
	mimeType string
	etag     string
	storedAt time.Time
}

// Backend is a pages.BlobStore over a map.
type Backend struct {
	mu    sync.RWMutex
	blobs map[string]blob
	now   func() time.Time
}

var _ pages.BlobStore = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		blobs: make(map[string]blob),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Upload reads the whole image before taking the lock.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, params pages.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	entry := blob{
		data:     data,
		mimeType: params.MimeType,
		etag:     hex.EncodeToString(sum[:16]),
		storedAt: b.now(),
	}
	if entry.mimeType == "" {
		entry.mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	b.blobs[objectKey] = entry
	b.mu.Unlock()
	return nil
}

func (b *Backend) get(objectKey string) (blob, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.blobs[objectKey]
	if !ok {
		return blob{}, pages.ErrObjectNotFound
	}
	return entry, nil
}

func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	entry, err := b.get(objectKey)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(entry.data)), nil
}

func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[objectKey]; !ok {
		return pages.ErrObjectNotFound
	}
	delete(b.blobs, objectKey)
	return nil
}

func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*pages.ObjectMeta, error) {
	entry, err := b.get(objectKey)
	if err != nil {
		return nil, err
	}
	return &pages.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(entry.data)),
		ContentType: entry.mimeType,
		UpdatedAt:   entry.storedAt,
		ETag:        entry.etag,
	}, nil
}

// URL is always empty; memory images are served by the API download route.
func (b *Backend) URL(ctx context.Context, objectKey string) (string, error) {
	return "", nil
}
