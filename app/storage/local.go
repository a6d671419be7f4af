package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps uploaded batch files on the local filesystem under a base
// directory. Paths handed back are relative to that directory.
type LocalStore struct {
	BaseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalStore{BaseDir: baseDir}
}

func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	_ = ctx

	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir %s: %w", s.BaseDir, err)
	}

	path := filepath.Join(s.BaseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file %s: %w", path, err)
	}
	return name, nil
}

func (s *LocalStore) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	_ = ctx

	path := storagePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.BaseDir, storagePath)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}
