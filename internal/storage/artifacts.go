package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store manages temporary audio artifacts on the local filesystem: uploaded
// inputs, converted intermediates, and buffered stream chunks.
type Store struct {
	dir string
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "transcribe-service")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the reader's content to a uniquely named file with the given
// extension and returns its path.
func (s *Store) Save(r io.Reader, ext string) (string, error) {
	path := filepath.Join(s.dir, uuid.New().String()+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

// SaveBytes writes a byte slice as an artifact.
func (s *Store) SaveBytes(data []byte, ext string) (string, error) {
	path := filepath.Join(s.dir, uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Remove deletes an artifact. Best-effort: a missing file is not an error,
// any other failure is returned for the caller to log.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}
