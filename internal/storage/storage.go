package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const markdownContentType = "text/markdown; charset=utf-8"

// ErrStorageUnavailable marks a failed artifact write. Whether this is
// fatal to the request is the orchestrator's decision.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns the locator (path or fully-qualified URL) under which a
	// stored key can later be retrieved.
	URL(key string) string
	Bucket() string
}

// ArtifactStore writes generated reports to an ObjectStorage backend under
// a per-user namespace with a collision-resistant name.
type ArtifactStore struct {
	backend ObjectStorage
	now     func() time.Time
}

// NewArtifactStore constructs an ArtifactStore for the provided backend.
func NewArtifactStore(backend ObjectStorage) *ArtifactStore {
	return &ArtifactStore{backend: backend, now: time.Now}
}

// Store persists content as UTF-8 Markdown under
// {namespace}/{slug}_{YYYYMMDD_HHMMSS}.md and returns its locator.
func (s *ArtifactStore) Store(ctx context.Context, namespace, baseName, content string) (string, error) {
	key := s.objectKey(namespace, baseName)
	r := strings.NewReader(content)
	if err := s.backend.Put(ctx, key, r, int64(len(content)), markdownContentType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return s.backend.URL(key), nil
}

// Retrieve opens the artifact stored under the given key.
func (s *ArtifactStore) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

func (s *ArtifactStore) objectKey(namespace, baseName string) string {
	name := slug.Make(baseName)
	if name == "" {
		name = "report"
	}
	stamp := s.now().Format("20060102_150405")
	return path.Join(namespace, fmt.Sprintf("%s_%s.md", name, stamp))
}
