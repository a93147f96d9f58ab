package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	corestore "github.com/mikermcconnell/BusScheduler-sub001/core/store"
)

// FileStore persists the latest schedule revision as a JSON file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// snapshot behind.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to the given path. The parent
// directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file store: create dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Save writes the revision, replacing any previous snapshot.
func (s *FileStore) Save(_ context.Context, rev corestore.Revision) error {
	data, err := json.MarshalIndent(rev, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

// Load reads the last saved revision.
func (s *FileStore) Load(_ context.Context) (corestore.Revision, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return corestore.Revision{}, corestore.ErrNoSnapshot
		}
		return corestore.Revision{}, fmt.Errorf("file store: read: %w", err)
	}
	var rev corestore.Revision
	if err := json.Unmarshal(data, &rev); err != nil {
		return corestore.Revision{}, fmt.Errorf("file store: decode: %w", err)
	}
	return rev, nil
}
