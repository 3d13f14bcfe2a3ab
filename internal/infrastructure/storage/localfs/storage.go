package localfs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

// Storage is a filesystem-backed object store laid out as
// {basePath}/{bucket}/{key}. Used for local development.
type Storage struct {
	basePath string
	baseURL  string
}

func New(basePath, baseURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *Storage) Upload(_ context.Context, bucket, key, _ string, data io.Reader) error {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "localfs upload", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.WrapError(domain.ErrStorage, "localfs upload", fmt.Errorf("create object dir: %w", err))
	}

	// Objects are immutable once written.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "localfs upload", fmt.Errorf("create file: %w", err))
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return domain.WrapError(domain.ErrStorage, "localfs upload", fmt.Errorf("write file: %w", err))
	}
	return nil
}

func (s *Storage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, (&url.URL{Path: key}).EscapedPath())
}

func (s *Storage) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) objectPath(bucket, key string) (string, error) {
	if bucket == "" || strings.Contains(bucket, "/") || strings.Contains(bucket, "..") {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty object key")
	}
	return filepath.Join(s.basePath, bucket, clean), nil
}
