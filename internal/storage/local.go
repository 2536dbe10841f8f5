package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalClient stores objects as files under a base directory, mirroring the
// object key layout on disk. Locators are server-relative paths suitable
// for static file hosting.
type LocalClient struct {
	dir     string
	urlBase string
}

// NewLocalClient constructs a filesystem-backed store rooted at dir.
// Locators are prefixed with urlBase (e.g. "/reports").
func NewLocalClient(dir, urlBase string) (*LocalClient, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local storage directory is required")
	}
	return &LocalClient{dir: dir, urlBase: strings.TrimSuffix(urlBase, "/")}, nil
}

// EnsureBucket creates the base directory if missing.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

// Put writes an object to disk, creating parent directories as needed.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := l.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Get opens a stored object.
func (l *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	src, err := l.objectPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}

// Delete removes a stored object.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	dst, err := l.objectPath(key)
	if err != nil {
		return err
	}
	return os.Remove(dst)
}

// URL returns the server-relative retrieval path for a stored key.
func (l *LocalClient) URL(key string) string {
	return l.urlBase + "/" + key
}

// Bucket returns the base directory.
func (l *LocalClient) Bucket() string {
	return l.dir
}

// objectPath maps a key to its on-disk location, rejecting traversal.
func (l *LocalClient) objectPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("invalid object key")
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}
