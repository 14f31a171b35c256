package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStorage is the external storage collaborator: opaque objects keyed by
// path-like strings. Subtitle documents and uploaded videos are stored here.
type ObjectStorage interface {
	// Put stores data under key and returns a fetchable URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get returns the object bytes for key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// URL returns the public URL for an existing key.
	URL(key string) string
}

// DiskStorage keeps objects on the local filesystem under a root directory.
// Keys may contain slashes; they map to subdirectories.
type DiskStorage struct {
	root    string
	baseURL string
}

func NewDiskStorage(root, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &DiskStorage{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *DiskStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *DiskStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *DiskStorage) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (s *DiskStorage) Delete(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return true, nil
}

func (s *DiskStorage) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
