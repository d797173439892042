package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps preferences in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a new FileStore and ensures the parent directory exists.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", filepath.Dir(path), err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(_ context.Context) (Preferences, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Preferences{}, fmt.Errorf("failed to read preferences file: %w", err)
	}
	return decode(data)
}

// Save writes through a temporary file so a crash never leaves half a file.
func (s *FileStore) Save(_ context.Context, p Preferences) error {
	data, err := json.MarshalIndent(Migrate(p), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}
